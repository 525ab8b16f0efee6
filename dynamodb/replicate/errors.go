package replicate

import (
	"errors"
	"fmt"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// Op names the call that failed.
type Op string

const (
	OpDescribe Op = "DescribeTable"
	OpCreate   Op = "CreateTable"
	OpWait     Op = "WaitForActive"
)

// TableError is returned when a call for a single table fails.
type TableError struct {
	Table string
	Op    Op
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// FormatError renders err as a multi-line dump with every detail the SDK
// exposes: API error code and message, HTTP status and request id.
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString("something occurred while creating local tables\n")

	var tableErr *TableError
	if errors.As(err, &tableErr) {
		fmt.Fprintf(&b, "  operation:   %s\n", tableErr.Op)
		fmt.Fprintf(&b, "  table:       %q\n", tableErr.Table)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(&b, "  error code:  %s\n", apiErr.ErrorCode())
		fmt.Fprintf(&b, "  message:     %s\n", apiErr.ErrorMessage())
		fmt.Fprintf(&b, "  fault:       %s\n", apiErr.ErrorFault())
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		fmt.Fprintf(&b, "  http status: %d\n", respErr.HTTPStatusCode())
		fmt.Fprintf(&b, "  request id:  %s\n", respErr.ServiceRequestID())
	}
	fmt.Fprintf(&b, "  error:       %v\n", err)
	return b.String()
}
