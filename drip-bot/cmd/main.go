package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/vignesh-goutham/drip/drip-bot/internal"
	"github.com/vignesh-goutham/drip/pkg/logging"
)

// Lambda handler for AWS Lambda invoked through a function URL
func handler(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	slog.Info("Drip bot triggered", "request_id", request.RequestContext.RequestID)

	// Load configuration from environment variables
	config, err := internal.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return respond(internal.ErrorEnvelope(err))
	}

	// Create context with timeout for the whole invocation
	ctx, cancel := context.WithTimeout(ctx, config.InvocationTimeout)
	defer cancel()

	bot, err := internal.NewDripBot(ctx, config)
	if err != nil {
		slog.Error("Failed to create drip bot", "error", err)
		return respond(internal.ErrorEnvelope(err))
	}

	return respond(internal.Respond(ctx, bot))
}

func respond(envelope internal.Envelope) (events.LambdaFunctionURLResponse, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: envelope.Status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func main() {
	logging.Setup()
	lambda.Start(handler)
}
