package replicate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/acksell/ddbreplicate/dynamodb/ddbstore"
	"github.com/acksell/ddbreplicate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

// fakeRemote serves DescribeTable from a fixed set of descriptions.
type fakeRemote struct {
	tables map[string]*types.TableDescription
	errs   map[string]error
	calls  []string
}

func (f *fakeRemote) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	name := aws.ToString(params.TableName)
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	desc, ok := f.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: Table: " + name + " not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}

// recordingStore records CreateTable requests before passing them to the store.
type recordingStore struct {
	*ddbstore.Store
	created []*dynamodb.CreateTableInput
}

func (r *recordingStore) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	r.created = append(r.created, params)
	return r.Store.CreateTable(ctx, params, optFns...)
}

func (r *recordingStore) createdNames() []string {
	var names []string
	for _, in := range r.created {
		names = append(names, aws.ToString(in.TableName))
	}
	return names
}

func newLocal(t *testing.T, defs ...table.TableDefinition) *recordingStore {
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, defs...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &recordingStore{Store: store}
}

func simpleDescription(name string, read, write int64) *types.TableDescription {
	return &types.TableDescription{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		ProvisionedThroughput: &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(read),
			WriteCapacityUnits: aws.Int64(write),
		},
		TableStatus: types.TableStatusActive,
	}
}

func remoteWith(names ...string) *fakeRemote {
	f := &fakeRemote{tables: map[string]*types.TableDescription{}, errs: map[string]error{}}
	for _, name := range names {
		f.tables[name] = simpleDescription(name, 5, 5)
	}
	return f
}

func TestReplicator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("single table copies attributes, keys and throughput", func(t *testing.T) {
		remote := remoteWith("Orders")
		local := newLocal(t)
		var out bytes.Buffer

		report, err := New(remote, local, &out, Options{}).Run(ctx, ParseTables("Orders"))
		require.NoError(t, err)

		assert.Equal(t, []string{"Orders"}, remote.calls)
		require.Len(t, local.created, 1)
		in := local.created[0]
		assert.Equal(t, "Orders", aws.ToString(in.TableName))
		assert.Equal(t, remote.tables["Orders"].AttributeDefinitions, in.AttributeDefinitions)
		assert.Equal(t, remote.tables["Orders"].KeySchema, in.KeySchema)
		assert.Equal(t, int64(5), aws.ToInt64(in.ProvisionedThroughput.ReadCapacityUnits))
		assert.Equal(t, int64(5), aws.ToInt64(in.ProvisionedThroughput.WriteCapacityUnits))

		assert.Equal(t, "Table: Orders HttpStatusCode: 200\n", out.String())
		require.Len(t, report.Results, 1)
		assert.Equal(t, Result{Table: "Orders", StatusCode: 200, Definition: report.Results[0].Definition}, report.Results[0])
	})

	t.Run("tables are processed in order", func(t *testing.T) {
		remote := remoteWith("C", "A", "B")
		local := newLocal(t)
		var out bytes.Buffer

		_, err := New(remote, local, &out, Options{}).Run(ctx, ParseTables("C;A;B"))
		require.NoError(t, err)

		assert.Equal(t, []string{"C", "A", "B"}, remote.calls)
		assert.Equal(t, []string{"C", "A", "B"}, local.createdNames())
		assert.Equal(t, "Table: C HttpStatusCode: 200\nTable: A HttpStatusCode: 200\nTable: B HttpStatusCode: 200\n", out.String())
	})

	t.Run("describe failure aborts the remaining tables", func(t *testing.T) {
		remote := remoteWith("A", "B", "C")
		remote.errs["B"] = &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not allowed"}
		local := newLocal(t)
		var out bytes.Buffer

		report, err := New(remote, local, &out, Options{}).Run(ctx, []string{"A", "B", "C"})
		require.Error(t, err)

		var tableErr *TableError
		require.ErrorAs(t, err, &tableErr)
		assert.Equal(t, "B", tableErr.Table)
		assert.Equal(t, OpDescribe, tableErr.Op)

		assert.Equal(t, []string{"A", "B"}, remote.calls)
		assert.Equal(t, []string{"A"}, local.createdNames())
		assert.Len(t, report.Results, 1)
		assert.Equal(t, "Table: A HttpStatusCode: 200\n", out.String())

		// Already created tables are not rolled back.
		_, err = local.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("A")})
		require.NoError(t, err)
	})

	t.Run("existing local table surfaces already exists", func(t *testing.T) {
		existing, err := table.FromDescription(simpleDescription("Orders", 1, 1))
		require.NoError(t, err)
		remote := remoteWith("Orders", "Other")
		local := newLocal(t, existing)
		var out bytes.Buffer

		_, err = New(remote, local, &out, Options{}).Run(ctx, []string{"Orders", "Other"})

		var inUse *types.ResourceInUseException
		require.ErrorAs(t, err, &inUse)
		var tableErr *TableError
		require.ErrorAs(t, err, &tableErr)
		assert.Equal(t, OpCreate, tableErr.Op)
		assert.Equal(t, []string{"Orders"}, remote.calls)
		assert.Empty(t, out.String())
	})

	t.Run("empty segment is described literally", func(t *testing.T) {
		remote := remoteWith("A", "B")
		local := newLocal(t)

		_, err := New(remote, local, io.Discard, Options{}).Run(ctx, ParseTables("A;;B"))

		var notFound *types.ResourceNotFoundException
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, []string{"A", ""}, remote.calls)
		assert.Equal(t, []string{"A"}, local.createdNames())
	})

	t.Run("no tables", func(t *testing.T) {
		remote := remoteWith()
		local := newLocal(t)
		var out bytes.Buffer

		report, err := New(remote, local, &out, Options{}).Run(ctx, []string{})
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.Empty(t, remote.calls)
		assert.Empty(t, out.String())
	})

	t.Run("wait for active", func(t *testing.T) {
		remote := remoteWith("Orders")
		local := newLocal(t)

		report, err := New(remote, local, io.Discard, Options{Wait: true}).Run(ctx, []string{"Orders"})
		require.NoError(t, err)
		assert.Len(t, report.Results, 1)
	})

	t.Run("failure is logged with detail", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		remote := remoteWith()
		local := newLocal(t)

		_, err := New(remote, local, io.Discard, Options{Logger: zap.New(core)}).Run(ctx, []string{"Missing"})
		require.Error(t, err)

		entries := logs.FilterMessage("something occurred while creating local tables").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "Missing", entries[0].ContextMap()["table"])
		assert.Contains(t, entries[0].ContextMap()["error"], "ResourceNotFoundException")
	})
}

func TestReplicator_OnDemandTableWithIndexes(t *testing.T) {
	ctx := context.Background()
	remote := remoteWith()
	remote.tables["Events"] = &types.TableDescription{
		TableName: aws.String("Events"),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("gsi1pk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		},
		BillingModeSummary: &types.BillingModeSummary{BillingMode: types.BillingModePayPerRequest},
		ProvisionedThroughput: &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(0),
			WriteCapacityUnits: aws.Int64(0),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
			{
				IndexName:  aws.String("gsi1"),
				KeySchema:  []types.KeySchemaElement{{AttributeName: aws.String("gsi1pk"), KeyType: types.KeyTypeHash}},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
	local := newLocal(t)

	_, err := New(remote, local, io.Discard, Options{}).Run(ctx, []string{"Events"})
	require.NoError(t, err)

	out, err := local.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("Events")})
	require.NoError(t, err)
	assert.Equal(t, types.BillingModePayPerRequest, out.Table.BillingModeSummary.BillingMode)
	require.Len(t, out.Table.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "gsi1", aws.ToString(out.Table.GlobalSecondaryIndexes[0].IndexName))
}

// fakeDynamoDBLocal answers the DynamoDB JSON protocol for CreateTable.
func fakeDynamoDBLocal(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DynamoDB_20120810.CreateTable", r.Header.Get("X-Amz-Target"))
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.Header().Set("X-Amzn-Requestid", "req-1")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReplicator_HTTPTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("reports the status code of the local response", func(t *testing.T) {
		srv := fakeDynamoDBLocal(t, http.StatusCreated, `{"TableDescription":{"TableName":"Orders","TableStatus":"ACTIVE"}}`)
		target, err := OpenTarget(ctx, srv.URL, "", nil)
		require.NoError(t, err)
		defer target.Close()
		assert.False(t, target.Embedded)

		var out bytes.Buffer
		_, err = New(remoteWith("Orders"), target.Client, &out, Options{}).Run(ctx, []string{"Orders"})
		require.NoError(t, err)
		assert.Equal(t, "Table: Orders HttpStatusCode: 201\n", out.String())
	})

	t.Run("already exists error carries status and request id", func(t *testing.T) {
		srv := fakeDynamoDBLocal(t, http.StatusBadRequest,
			`{"__type":"com.amazonaws.dynamodb.v20120810#ResourceInUseException","message":"Cannot create preexisting table"}`)
		target, err := OpenTarget(ctx, srv.URL, "", nil)
		require.NoError(t, err)
		defer target.Close()

		_, err = New(remoteWith("Orders"), target.Client, io.Discard, Options{}).Run(ctx, []string{"Orders"})
		var inUse *types.ResourceInUseException
		require.ErrorAs(t, err, &inUse)

		dump := FormatError(err)
		assert.Contains(t, dump, "operation:   CreateTable")
		assert.Contains(t, dump, "error code:  ResourceInUseException")
		assert.Contains(t, dump, "http status: 400")
		assert.Contains(t, dump, "request id:  req-1")
	})
}

func TestOpenTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		target, err := OpenTarget(ctx, "memory://", "", nil)
		require.NoError(t, err)
		assert.True(t, target.Embedded)
		require.NoError(t, target.Close())
	})

	t.Run("badger directory", func(t *testing.T) {
		target, err := OpenTarget(ctx, BadgerScheme+t.TempDir(), "", nil)
		require.NoError(t, err)
		assert.True(t, target.Embedded)
		require.NoError(t, target.Close())
	})

	cases := []string{"badger://", "localhost:8000", "ftp://localhost", "http://"}
	for _, serviceURL := range cases {
		t.Run("invalid "+serviceURL, func(t *testing.T) {
			_, err := OpenTarget(ctx, serviceURL, "", nil)
			require.Error(t, err)
		})
	}
}

func TestFormatError(t *testing.T) {
	apiErr := &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	err := &TableError{
		Table: "Orders",
		Op:    OpDescribe,
		Err: &smithy.OperationError{
			ServiceID:     "DynamoDB",
			OperationName: "DescribeTable",
			Err: &awshttp.ResponseError{
				ResponseError: &smithyhttp.ResponseError{
					Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest}},
					Err:      apiErr,
				},
				RequestID: "abc-123",
			},
		},
	}

	dump := FormatError(err)
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	assert.Equal(t, "something occurred while creating local tables", lines[0])
	assert.Contains(t, dump, `table:       "Orders"`)
	assert.Contains(t, dump, "operation:   DescribeTable")
	assert.Contains(t, dump, "error code:  ResourceNotFoundException")
	assert.Contains(t, dump, "message:     Requested resource not found")
	assert.Contains(t, dump, "fault:       client")
	assert.Contains(t, dump, "http status: 400")
	assert.Contains(t, dump, "request id:  abc-123")

	plain := FormatError(errors.New("boom"))
	assert.Equal(t, "something occurred while creating local tables\n  error:       boom\n", plain)
}
