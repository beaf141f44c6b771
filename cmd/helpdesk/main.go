package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spec-kit/helpdesk-console/internal/cli"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func describe(err error) string {
	de := apperrors.ToDomainError(err)
	if de.Code == apperrors.CodeInternal {
		return err.Error()
	}
	fields := make([]string, 0, len(de.Details))
	for field := range de.Details {
		if field != "upstream_status" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	msg := de.Message
	for _, field := range fields {
		msg += fmt.Sprintf("\n  %s: %v", field, de.Details[field])
	}
	return msg
}
