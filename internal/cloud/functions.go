package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/example/kycstack/internal/confpush"
)

type LambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Functions invokes Lambda functions synchronously.
type Functions struct {
	API LambdaAPI
}

func (f *Functions) Invoke(ctx context.Context, function string, payload []byte) (confpush.Response, error) {
	out, err := f.API.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return confpush.Response{}, err
	}
	return confpush.Response{
		StatusCode:    int(out.StatusCode),
		Payload:       out.Payload,
		FunctionError: aws.ToString(out.FunctionError),
	}, nil
}
