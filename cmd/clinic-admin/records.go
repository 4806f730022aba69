package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/d0ggzi/celery-clinic/internal/data"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

type submitOptions struct {
	Doctor string
}

type statusOptions struct {
	RecordID string
}

type recordsOptions struct {
	Query   string
	RawJSON bool
}

func parseSubmitFlags(args []string) (submitOptions, error) {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts submitOptions
	fs.StringVar(&opts.Doctor, "doctor", "", "Doctor specialty to book (required)")
	if err := fs.Parse(args); err != nil {
		return submitOptions{}, err
	}
	opts.Doctor = strings.TrimSpace(opts.Doctor)
	if opts.Doctor == "" {
		return submitOptions{}, errors.New("--doctor is required")
	}
	return opts, nil
}

func parseStatusFlags(args []string) (statusOptions, error) {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts statusOptions
	fs.StringVar(&opts.RecordID, "id", "", "Record id returned by submit (required)")
	if err := fs.Parse(args); err != nil {
		return statusOptions{}, err
	}
	if opts.RecordID == "" && fs.NArg() > 0 {
		opts.RecordID = fs.Arg(0)
	}
	opts.RecordID = strings.TrimSpace(opts.RecordID)
	if opts.RecordID == "" {
		return statusOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func parseRecordsFlags(args []string) (recordsOptions, error) {
	fs := flag.NewFlagSet("records", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts recordsOptions
	fs.StringVar(&opts.Query, "query", "", "JMESPath expression applied to the sorted record list")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return recordsOptions{}, err
	}
	opts.Query = strings.TrimSpace(opts.Query)
	return opts, nil
}

func runSubmit(cmdCtx *commandContext, args []string) error {
	opts, err := parseSubmitFlags(args)
	if err != nil {
		return err
	}
	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *adminInfra) error {
		doctor := opts.Doctor
		resp, submitErr := infra.Services.Appointments.Submit(ctx, model.SubmitRequest{Doctor: &doctor})
		if submitErr != nil {
			return submitErr
		}
		return writef(cmdCtx.Out, "%s\n", resp.RecordID)
	})
}

func runStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseStatusFlags(args)
	if err != nil {
		return err
	}
	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *adminInfra) error {
		resp, pollErr := infra.Services.Appointments.PollStatus(ctx, opts.RecordID)
		if pollErr != nil {
			return pollErr
		}
		return printStatus(cmdCtx.Out, resp)
	})
}

func runRecords(cmdCtx *commandContext, args []string) error {
	opts, err := parseRecordsFlags(args)
	if err != nil {
		return err
	}
	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *adminInfra) error {
		if opts.Query != "" || opts.RawJSON {
			out, queryErr := infra.Services.Appointments.QueryRecords(ctx, opts.Query)
			if queryErr != nil {
				return queryErr
			}
			return printJSON(cmdCtx.Out, out)
		}
		recs, listErr := infra.Services.Appointments.ListCompleted(ctx)
		if listErr != nil {
			return listErr
		}
		return renderRecordsTable(cmdCtx.Out, recs)
	})
}

func runQueueLen(cmdCtx *commandContext, _ []string) error {
	return withInfra(cmdCtx, defaultCommandTimeout, func(ctx context.Context, infra *adminInfra) error {
		queue := data.NewRedisTaskQueue(infra.Redis, cmdCtx.Config.Queue.Name)
		n, err := queue.Len(ctx)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "%s: %d\n", queue.Name(), n)
	})
}

func printStatus(w io.Writer, resp *model.StatusResponse) error {
	doctor := "-"
	if resp.Doctor != nil {
		doctor = *resp.Doctor
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "Record:\t%s\nStatus:\t%s\nDoctor:\t%s\n", resp.RecordID, resp.RecordStatus, doctor); err != nil {
		return err
	}
	return tw.Flush()
}

func renderRecordsTable(w io.Writer, recs []model.Record) error {
	if len(recs) == 0 {
		return writeln(w, "No records found.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "RECORD ID\tDOCTOR\tDATE"); err != nil {
		return fmt.Errorf("write records header row: %w", err)
	}
	for _, rec := range recs {
		if err := writef(tw, "%s\t%s\t%s\n", rec.ID, rec.Doctor, rec.Date); err != nil {
			return fmt.Errorf("write record row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush records table: %w", err)
	}
	return writef(w, "\nTotal: %d\n", len(recs))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
