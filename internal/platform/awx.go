package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rflorenc/awx-launch/internal/models"
)

const (
	tokensPath      = "/api/v2/tokens/"
	inventoriesPath = "/api/v2/inventories/"

	// DefaultPollInterval is the pause between two job status requests.
	DefaultPollInterval = 5 * time.Second
)

func hostsPath(inventoryID int) string {
	return fmt.Sprintf("/api/v2/inventories/%d/hosts/", inventoryID)
}

func launchPath(templateID int) string {
	return fmt.Sprintf("/api/v2/job_templates/%d/launch/", templateID)
}

func jobPath(jobID int) string {
	return fmt.Sprintf("/api/v2/jobs/%d/", jobID)
}

// JobURL returns the controller UI address of a job's output page.
func JobURL(endpoint string, jobID int) string {
	return fmt.Sprintf("%s/#/jobs/playbook/%d/output", endpoint, jobID)
}

// WatchOptions bound the job status poll loop.
type WatchOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration // zero waits forever
}

// AWX implements token exchange, inventory provisioning, job launch and
// job watching against an AWX / Tower controller.
type AWX struct {
	client *Client
	logger log.Logger
	watch  WatchOptions
}

// NewAWX creates an AWX controller client.
func NewAWX(client *Client, logger log.Logger, watch WatchOptions) *AWX {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if watch.PollInterval <= 0 {
		watch.PollInterval = DefaultPollInterval
	}
	return &AWX{client: client, logger: logger, watch: watch}
}

// GetToken exchanges a username and password for a bearer token.
func (a *AWX) GetToken(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := a.client.PostJSON(ctx, tokensPath, basicAuth(username, password), nil, &resp)
	if err != nil {
		var apiErr *RemoteAPIError
		if errors.As(err, &apiErr) {
			a.logFailure(apiErr)
			return "", &AuthenticationError{StatusCode: apiErr.StatusCode, Body: apiErr.Body}
		}
		return "", fmt.Errorf("requesting token: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("requesting token: response has no token")
	}
	return resp.Token, nil
}

// CreateInventory creates an inventory and returns its id.
func (a *AWX) CreateInventory(ctx context.Context, token, name, description string, organizationID int) (int, error) {
	payload := models.Inventory{Name: name, Description: description, Organization: organizationID}
	var created models.Inventory
	if err := a.client.PostJSON(ctx, inventoriesPath, bearer(token), payload, &created); err != nil {
		return 0, a.fail(fmt.Sprintf("creating inventory %s", name), err)
	}
	return created.ID, nil
}

// AddHost registers a host into an inventory.
func (a *AWX) AddHost(ctx context.Context, token string, inventoryID int, name, description string) error {
	payload := models.Host{Name: name, Description: description}
	if _, _, err := a.client.Post(ctx, hostsPath(inventoryID), bearer(token), payload); err != nil {
		return a.fail(fmt.Sprintf("adding host %s to inventory %d", name, inventoryID), err)
	}
	return nil
}

// TriggerJob launches a job template against an inventory and returns the job id.
func (a *AWX) TriggerJob(ctx context.Context, token string, templateID, inventoryID int, extraVars models.ExtraVars) (int, error) {
	payload := struct {
		Inventory int              `json:"inventory"`
		ExtraVars models.ExtraVars `json:"extra_vars"`
	}{Inventory: inventoryID, ExtraVars: extraVars}

	var job models.Job
	if err := a.client.PostJSON(ctx, launchPath(templateID), bearer(token), payload, &job); err != nil {
		return 0, a.fail(fmt.Sprintf("launching job template %d", templateID), err)
	}
	return job.ID, nil
}

// GetJob fetches the current state of a job.
func (a *AWX) GetJob(ctx context.Context, token string, jobID int) (models.Job, error) {
	var job models.Job
	if err := a.client.GetJSON(ctx, jobPath(jobID), bearer(token), &job); err != nil {
		return models.Job{}, a.fail(fmt.Sprintf("fetching job %d", jobID), err)
	}
	return job, nil
}

// WaitForCompletion polls a job until its status is terminal and returns
// that status verbatim. The first poll happens immediately.
func (a *AWX) WaitForCompletion(ctx context.Context, token string, jobID int) (string, error) {
	if a.watch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.watch.Timeout)
		defer cancel()
	}

	status := models.StatusUnknown
	for {
		job, err := a.GetJob(ctx, token, jobID)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return status, fmt.Errorf("%w %d after %s (last status %q)", ErrWaitTimeout, jobID, a.watch.Timeout, status)
			}
			return status, err
		}
		status = job.Status
		if models.IsTerminal(status) {
			return status, nil
		}
		level.Debug(a.logger).Log("msg", "job running", "job", jobID, "status", status)

		timer := time.NewTimer(a.watch.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return status, fmt.Errorf("%w %d after %s (last status %q)", ErrWaitTimeout, jobID, a.watch.Timeout, status)
			}
			return status, ctx.Err()
		case <-timer.C:
		}
	}
}

// fail logs the response body of a rejected call and wraps err.
func (a *AWX) fail(action string, err error) error {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		a.logFailure(apiErr)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func (a *AWX) logFailure(apiErr *RemoteAPIError) {
	level.Error(a.logger).Log(
		"msg", "controller rejected request",
		"method", apiErr.Method,
		"path", apiErr.Path,
		"status", apiErr.StatusCode,
		"body", apiErr.Body,
	)
}
