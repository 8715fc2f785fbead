// selftest runs the registry check sequence against a fresh in-memory
// registry. Exit status: 0 when every check passes, 1 when a check fails,
// 2 on any other error.
//
// Flags:
//
//	-list         print the records left in the registry after the run
//	-audit        print the audit trail after the run
//	-audit-limit  print only the last N audit events (0 prints all)
//	-metrics      print registry metrics in Prometheus text format
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"cadastro/internal/audit"
	"cadastro/internal/platform/config"
	"cadastro/internal/platform/logger"
	"cadastro/internal/platform/metrics"
	"cadastro/internal/selftest"
	"cadastro/internal/user/models"
	"cadastro/internal/user/service"
	"cadastro/internal/user/store"
	"cadastro/pkg/domain"
	"cadastro/pkg/requestcontext"
)

const (
	exitOK        = 0
	exitAssertion = 1
	exitError     = 2
)

// options selects what run prints after the check sequence.
type options struct {
	listUsers   bool
	dumpAudit   bool
	auditLimit  int
	dumpMetrics bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.listUsers, "list", false, "Print the records left in the registry after the run")
	flag.BoolVar(&opts.dumpAudit, "audit", false, "Print the audit trail after the run")
	flag.IntVar(&opts.auditLimit, "audit-limit", 0, "Print only the last N audit events (0 prints all)")
	flag.BoolVar(&opts.dumpMetrics, "metrics", false, "Print registry metrics in Prometheus text format after the run")
	flag.Parse()

	os.Exit(run(context.Background(), os.Stdout, os.Stderr, opts))
}

func run(ctx context.Context, stdout, stderr io.Writer, opts options) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return exitError
	}
	ctx = requestcontext.WithRunID(ctx, uuid.NewString())
	log := logger.New(stderr, cfg.Level(), cfg.LogFormat).With("run_id", requestcontext.RunID(ctx))

	reg := prometheus.NewRegistry()
	trail := audit.NewInMemoryStore()
	svc := service.New(store.NewInMemory(),
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
		service.WithAuditPublisher(audit.NewPublisher(trail)),
		service.WithCPFValidation(cfg.RequireValidCPF),
		service.WithPageSize(cfg.PageSize),
	)

	code := exitOK
	switch err := selftest.Run(ctx, svc); {
	case err == nil:
		fmt.Fprintln(stdout, "all checks passed")
	case selftest.IsAssertion(err):
		fmt.Fprintln(stdout, "self-test failed:", err)
		code = exitAssertion
	default:
		fmt.Fprintln(stdout, "self-test error:", err)
		code = exitError
	}

	if opts.listUsers {
		if err := writeUsers(stdout, svc.List(ctx)); err != nil {
			log.Error("failed to print users", "error", err)
		}
	}
	if opts.dumpAudit {
		if err := writeAudit(ctx, stdout, trail, opts.auditLimit); err != nil {
			log.Error("failed to print audit trail", "error", err)
		}
	}
	if opts.dumpMetrics {
		if err := writeMetrics(stdout, reg); err != nil {
			log.Error("failed to print metrics", "error", err)
		}
	}
	return code
}

// writeUsers prints one record per line with the CPF in canonical form. CPFs
// that do not reduce to eleven digits are printed as stored.
func writeUsers(w io.Writer, users []models.User) error {
	for _, u := range users {
		cpf, ok := domain.FormatCPF(u.CPF)
		if !ok {
			cpf = u.CPF
		}
		status := "active"
		if !u.Active {
			status = "inactive"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", cpf, u.Name, status); err != nil {
			return err
		}
	}
	return nil
}

func writeAudit(ctx context.Context, w io.Writer, trail *audit.InMemoryStore, limit int) error {
	var (
		events []audit.Event
		err    error
	)
	if limit > 0 {
		events, err = trail.ListRecent(ctx, limit)
	} else {
		events, err = trail.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	for _, e := range events {
		if _, err := fmt.Fprintf(w, "%s %s %s %s %.12s %s\n",
			e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), e.RunID, e.ID, e.Action, e.SubjectHash, e.Detail); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
