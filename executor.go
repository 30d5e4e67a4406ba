package codebytes

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Executor invokes an execution engine synchronously.
type Executor interface {
	// Invoke sends payload to target and returns the raw response. Engine-side
	// failures are reported as a *RemoteExecutionError.
	Invoke(ctx context.Context, target string, payload []byte) ([]byte, error)
}

// LambdaClient interface for easier testing.
type LambdaClient interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaExecutor implements Executor with AWS Lambda request-response invocations.
type LambdaExecutor struct {
	Client LambdaClient
}

// NewLambdaExecutor creates a LambdaExecutor.
func NewLambdaExecutor(client LambdaClient) *LambdaExecutor {
	return &LambdaExecutor{Client: client}
}

// Invoke implements Executor. Target is the function name or ARN.
func (e *LambdaExecutor) Invoke(ctx context.Context, target string, payload []byte) ([]byte, error) {
	out, err := e.Client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(target),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, &RemoteExecutionError{Target: target, Err: fmt.Errorf("failed to invoke: %w", err)}
	}

	if out.FunctionError != nil {
		return nil, &RemoteExecutionError{Target: target, Payload: out.Payload}
	}

	return out.Payload, nil
}
