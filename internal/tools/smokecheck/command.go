package smokecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teacherportal/marks-portal-service/internal/tools/common"
	"github.com/teacherportal/marks-portal-service/internal/tools/loadgen"
	"github.com/teacherportal/marks-portal-service/internal/tools/ui"
)

type options struct {
	baseURL  string
	username string
	password string
	ci       bool
}

// NewRootCommand builds the smokecheck CLI: an end-to-end probe that logs
// in, mutates a roster record, and verifies the audit trail against a
// running instance.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "smokecheck", Short: "Verify a running instance end to end"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.username, "username", "", "teacher username for the login step")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "", "teacher password for the login step")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newTrafficCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Health, login, roster mutation and audit trail round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smokecheck run", func(ctx context.Context) ([]string, error) {
				return smokeFlow(ctx, *opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "smokecheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func newTrafficCommand(opts *options) *cobra.Command {
	var (
		duration time.Duration
		rps      int
		workers  int
		profile  string
	)
	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Generate synthetic traffic against the instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smokecheck traffic", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     opts.baseURL,
					Profile:     profile,
					Duration:    duration,
					RPS:         rps,
					Concurrency: workers,
					Seed:        42,
					Username:    opts.username,
					Password:    opts.password,
				})
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures),
					fmt.Sprintf("status classes %v", res.StatusClasses),
				}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "smokecheck traffic", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 6*time.Second, "traffic duration")
	cmd.Flags().IntVar(&rps, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&workers, "workers", 6, "concurrent workers")
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: auth, roster or mixed")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func smokeFlow(ctx context.Context, opts options) ([]string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	var details []string

	for _, path := range []string{"/health/live", "/health/ready"} {
		status, _, err := request(ctx, client, http.MethodGet, opts.baseURL+path, "", nil)
		if err != nil {
			return details, err
		}
		if status != http.StatusOK {
			return details, fmt.Errorf("%s returned %d", path, status)
		}
		details = append(details, path+": ok")
	}

	if opts.username == "" || opts.password == "" {
		details = append(details, "login skipped: no credentials provided")
		return details, nil
	}

	loginBody := fmt.Sprintf(`{"username":%q,"password":%q}`, opts.username, opts.password)
	status, body, err := request(ctx, client, http.MethodPost, opts.baseURL+"/api/v1/auth/login", loginBody, nil)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("login returned %d", status)
	}
	var loginEnv struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &loginEnv); err != nil {
		return details, fmt.Errorf("decode login response: %w", err)
	}
	if loginEnv.Data.Token == "" {
		return details, fmt.Errorf("login response carried no token")
	}
	details = append(details, "login: ok")
	authz := map[string]string{"Authorization": "Bearer " + loginEnv.Data.Token}

	probeName := fmt.Sprintf("Smoke Probe %s", time.Now().Format("Jan Mon"))
	addBody := fmt.Sprintf(`{"name":%q,"subject":"Smoke Subject","marks":1}`, probeName)
	status, body, err = request(ctx, client, http.MethodPost, opts.baseURL+"/api/v1/students", addBody, authz)
	if err != nil {
		return details, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return details, fmt.Errorf("add student returned %d", status)
	}
	var studentEnv struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &studentEnv); err != nil {
		return details, fmt.Errorf("decode student response: %w", err)
	}
	details = append(details, fmt.Sprintf("add student: ok id=%d", studentEnv.Data.ID))

	status, _, err = request(ctx, client, http.MethodDelete, fmt.Sprintf("%s/api/v1/students/%d", opts.baseURL, studentEnv.Data.ID), "", authz)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("delete student returned %d", status)
	}
	details = append(details, "delete student: ok")

	status, body, err = request(ctx, client, http.MethodGet, opts.baseURL+"/api/v1/audit-logs?limit=10", "", authz)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("audit-logs returned %d", status)
	}
	if !bytes.Contains(body, []byte("delete_student")) {
		return details, fmt.Errorf("audit trail is missing the probe deletion")
	}
	details = append(details, "audit trail: ok")

	status, _, err = request(ctx, client, http.MethodPost, opts.baseURL+"/api/v1/auth/logout", "", authz)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("logout returned %d", status)
	}
	details = append(details, "logout: ok")
	return details, nil
}

func request(ctx context.Context, client *http.Client, method, url, body string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return 0, nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}
