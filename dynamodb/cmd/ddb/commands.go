package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acksell/ddbreplicate/dynamodb/replicate"
	"github.com/acksell/ddbreplicate/dynamodb/schema"
	"github.com/acksell/ddbreplicate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
)

// runSchema describes the remote tables and writes their YAML schema.
// Nothing is created locally.
func runSchema(ctx context.Context, cmd SchemaCmd, e *env) error {
	if err := e.cfg.Require(replicate.EnvAccessKeyID, replicate.EnvSecretAccessKey, replicate.EnvTables); err != nil {
		return err
	}

	remote, err := e.deps.newRemote(ctx, e.cfg, e.remoteRegion())
	if err != nil {
		return fmt.Errorf("create remote client: %w", err)
	}

	defs := make([]table.TableDefinition, 0, len(e.cfg.Tables))
	for _, name := range e.cfg.Tables {
		e.logger.Debug("describing remote table", zap.String("table", name))
		def, err := replicate.DescribeTable(ctx, remote, name)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}

	var w io.Writer = e.out
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return fmt.Errorf("create %s: %w", cmd.Output, err)
		}
		defer f.Close()
		w = f
	}
	if err := schema.FromDefinitions(defs).Write(w); err != nil {
		return err
	}
	if cmd.Output != "" {
		_, _ = fmt.Fprintf(e.out, "Wrote %d table(s) to %s\n", len(defs), cmd.Output)
	}
	return nil
}

// runLs prints the tables on the local target, one per line.
func runLs(ctx context.Context, e *env) error {
	if err := e.cfg.Require(replicate.EnvServiceURL); err != nil {
		return err
	}

	target, err := e.openTarget(ctx)
	if err != nil {
		return err
	}
	defer target.Close()

	paginator := dynamodb.NewListTablesPaginator(target.Client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		for _, name := range page.TableNames {
			_, _ = fmt.Fprintln(e.out, name)
		}
	}
	return nil
}

// callerIdentityAPI is the subset of *sts.Client used by ddb identity.
type callerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type identityClients struct {
	STS callerIdentityAPI
	IAM iam.ListAccountAliasesAPIClient
}

func newIdentityClients(ctx context.Context, cfg replicate.Config, region string) (identityClients, error) {
	awsCfg, err := replicate.RemoteAWSConfig(ctx, cfg, region)
	if err != nil {
		return identityClients{}, err
	}
	return identityClients{
		STS: sts.NewFromConfig(awsCfg),
		IAM: iam.NewFromConfig(awsCfg),
	}, nil
}

// runIdentity prints the account behind the remote credentials so a run can
// be checked against the intended account before any table is created.
func runIdentity(ctx context.Context, e *env) error {
	if err := e.cfg.Require(replicate.EnvAccessKeyID, replicate.EnvSecretAccessKey); err != nil {
		return err
	}

	clients, err := e.deps.newIdentity(ctx, e.cfg, e.remoteRegion())
	if err != nil {
		return fmt.Errorf("create identity clients: %w", err)
	}

	caller, err := clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("get caller identity: %w", err)
	}

	// Listing aliases needs iam:ListAccountAliases, which many roles lack.
	var aliases []string
	paginator := iam.NewListAccountAliasesPaginator(clients.IAM, &iam.ListAccountAliasesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			e.logger.Warn("list account aliases", zap.Error(err))
			break
		}
		aliases = append(aliases, page.AccountAliases...)
	}

	_, _ = fmt.Fprintf(e.out, "Account: %s\n", aws.ToString(caller.Account))
	_, _ = fmt.Fprintf(e.out, "Arn:     %s\n", aws.ToString(caller.Arn))
	_, _ = fmt.Fprintf(e.out, "UserId:  %s\n", aws.ToString(caller.UserId))
	_, _ = fmt.Fprintf(e.out, "Region:  %s\n", e.remoteRegion())
	if len(aliases) > 0 {
		_, _ = fmt.Fprintf(e.out, "Aliases: %s\n", strings.Join(aliases, ", "))
	}
	return nil
}
