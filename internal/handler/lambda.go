// Package handler exposes the translator over AWS Lambda and local HTTP.
package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/j-veylop/claude-code-metrics/internal/logger"
	"github.com/j-veylop/claude-code-metrics/internal/translator"
)

const contentTypeJSON = "application/json"

// Translator turns a request body into a response.
type Translator interface {
	Translate(ctx context.Context, body []byte, isBase64 bool) (translator.Response, error)
}

// Lambda serves API Gateway proxy and function URL invocations.
type Lambda struct {
	translator Translator
}

// NewLambda creates a Lambda handler backed by t.
func NewLambda(t Translator) *Lambda {
	return &Lambda{translator: t}
}

// Handle translates a single invocation. A publish failure is returned so the
// runtime records the invocation as failed.
func (l *Lambda) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := l.translator.Translate(ctx, []byte(req.Body), req.IsBase64Encoded)

	out := events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    map[string]string{"Content-Type": contentTypeJSON},
		Body:       resp.Body,
	}
	if err != nil {
		logger.Error("failed to publish metrics", "request_id", req.RequestContext.RequestID, "error", err)
		return out, err
	}
	return out, nil
}
