package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/classifier"
)

var (
	classifyStatus     int
	classifyBody       string
	classifyRetryAfter string
	classifyTransport  string
	classifyMessage    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a failure and print the result as JSON",
	Example: `  clinicnet classify --status 400 --body '{"errors":{"email":["Invalid email"]}}'
  clinicnet classify --transport-code ECONNABORTED
  clinicnet classify --message "socket hang up"`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().IntVar(&classifyStatus, "status", 0, "HTTP status code of the response")
	classifyCmd.Flags().StringVar(&classifyBody, "body", "", "response body")
	classifyCmd.Flags().StringVar(&classifyRetryAfter, "retry-after", "", "Retry-After response header")
	classifyCmd.Flags().StringVar(&classifyTransport, "transport-code", "", "transport failure code, e.g. ECONNREFUSED")
	classifyCmd.Flags().StringVar(&classifyMessage, "message", "", "plain error message")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	err, buildErr := failureFromFlags()
	if buildErr != nil {
		return buildErr
	}

	out, jsonErr := json.MarshalIndent(classifier.Classify(err), "", "  ")
	if jsonErr != nil {
		return fmt.Errorf("failed to encode classification: %w", jsonErr)
	}
	_, _ = fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func failureFromFlags() (error, error) {
	switch {
	case classifyStatus > 0:
		header := http.Header{}
		if classifyRetryAfter != "" {
			header.Set("Retry-After", classifyRetryAfter)
		}
		return &domain.ResponseError{
			StatusCode: classifyStatus,
			Header:     header,
			Body:       []byte(classifyBody),
		}, nil
	case classifyTransport != "":
		return &domain.RequestError{Code: classifyTransport}, nil
	case classifyMessage != "":
		return errors.New(classifyMessage), nil
	}
	return nil, errors.New("one of --status, --transport-code or --message is required")
}
