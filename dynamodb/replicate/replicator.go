// Package replicate copies DynamoDB table schemas from a remote account to a
// local target.
//
// For every table name, in order, the remote table is described and a table
// with the same attribute definitions, key schema and throughput is created on
// the local target. The first failure aborts the run; tables created before it
// are left in place.
package replicate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/acksell/ddbreplicate/dynamodb/ddbiface"
	"github.com/acksell/ddbreplicate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

const DefaultWaitTimeout = 5 * time.Minute

// Options tune a Replicator. The zero value creates tables without waiting.
type Options struct {
	// Wait blocks after each CreateTable until the local table is ACTIVE.
	Wait        bool
	WaitTimeout time.Duration
	Logger      *zap.Logger
}

// Result is the outcome of one replicated table.
type Result struct {
	Table      string
	StatusCode int
	Definition table.TableDefinition
}

// Report collects the results of the tables replicated so far.
type Report struct {
	Results []Result
}

// Replicator copies table schemas from remote to local.
type Replicator struct {
	remote ddbiface.TableDescriber
	local  ddbiface.SchemaClient
	out    io.Writer
	opts   Options
	logger *zap.Logger
}

// New creates a Replicator. Status lines are written to out.
func New(remote ddbiface.TableDescriber, local ddbiface.SchemaClient, out io.Writer, opts Options) *Replicator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if out == nil {
		out = io.Discard
	}
	return &Replicator{
		remote: remote,
		local:  local,
		out:    out,
		opts:   opts,
		logger: logger,
	}
}

// Run replicates tables sequentially in the given order. It stops at the first
// error, which is logged and returned as a *TableError. The report holds the
// tables created before the failure.
func (r *Replicator) Run(ctx context.Context, tables []string) (Report, error) {
	var report Report
	for _, name := range tables {
		res, err := r.ReplicateTable(ctx, name)
		if err != nil {
			r.logger.Error("something occurred while creating local tables",
				zap.String("table", name),
				zap.Int("replicated", len(report.Results)),
				zap.Error(err),
			)
			return report, err
		}
		report.Results = append(report.Results, res)
		if _, err := fmt.Fprintf(r.out, "Table: %s HttpStatusCode: %d\n", res.Table, res.StatusCode); err != nil {
			return report, fmt.Errorf("write status: %w", err)
		}
	}
	return report, nil
}

// ReplicateTable describes name on the remote and creates it on the local target.
func (r *Replicator) ReplicateTable(ctx context.Context, name string) (Result, error) {
	logger := r.logger.With(zap.String("table", name))

	logger.Debug("describing remote table")
	def, err := DescribeTable(ctx, r.remote, name)
	if err != nil {
		return Result{}, err
	}

	logger.Debug("creating local table",
		zap.Int("attributes", len(def.Attributes)),
		zap.String("billing_mode", string(def.BillingMode)),
		zap.Int64("read_capacity", def.Throughput.ReadCapacityUnits),
		zap.Int64("write_capacity", def.Throughput.WriteCapacityUnits),
		zap.Int("gsis", len(def.GSIs)),
		zap.Int("lsis", len(def.LSIs)),
	)
	out, err := r.local.CreateTable(ctx, def.CreateTableInput())
	if err != nil {
		return Result{}, &TableError{Table: name, Op: OpCreate, Err: err}
	}

	res := Result{
		Table:      name,
		StatusCode: statusCode(out.ResultMetadata),
		Definition: def,
	}
	if out.TableDescription != nil && out.TableDescription.TableName != nil {
		res.Table = aws.ToString(out.TableDescription.TableName)
	}

	if r.opts.Wait {
		logger.Debug("waiting for local table", zap.Duration("timeout", r.opts.WaitTimeout))
		waiter := dynamodb.NewTableExistsWaiter(r.local)
		err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(res.Table)}, r.opts.WaitTimeout)
		if err != nil {
			return Result{}, &TableError{Table: name, Op: OpWait, Err: err}
		}
	}

	logger.Info("created local table", zap.Int("status_code", res.StatusCode))
	return res, nil
}

// DescribeTable fetches the schema of name from client.
func DescribeTable(ctx context.Context, client ddbiface.TableDescriber, name string) (table.TableDefinition, error) {
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return table.TableDefinition{}, &TableError{Table: name, Op: OpDescribe, Err: err}
	}
	def, err := table.FromDescription(out.Table)
	if err != nil {
		return table.TableDefinition{}, &TableError{Table: name, Op: OpDescribe, Err: err}
	}
	return def, nil
}

// statusCode returns the HTTP status of the call that produced md. Targets
// without an HTTP round-trip, such as ddbstore, report 200.
func statusCode(md middleware.Metadata) int {
	if resp, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response); ok && resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return http.StatusOK
}
