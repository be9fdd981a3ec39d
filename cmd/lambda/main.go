package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"

	"lambo/internal/config"
	"lambo/internal/demo"
	"lambo/internal/logging"
	"lambo/pkg/server"
)

var manager = server.GetAppManager()

func init() {
	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	logging.SetupGlobal(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := manager.Initialize(cfg, demo.Register); err != nil {
		panic("Failed to initialize app: " + err.Error())
	}
}

func handler(ctx context.Context, payload json.RawMessage) (events.ALBTargetGroupResponse, error) {
	app, err := manager.GetApp(ctx)
	if err != nil {
		return events.ALBTargetGroupResponse{}, err
	}
	defer manager.UpdateLastUsed()

	return app.RawHandler()(ctx, payload)
}

func main() {
	awslambda.Start(handler)
}
