// Package workflow drives one launch: token, inventory, hosts, job, wait, outputs.
package workflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rflorenc/awx-launch/internal/config"
	"github.com/rflorenc/awx-launch/internal/models"
	"github.com/rflorenc/awx-launch/internal/output"
	"github.com/rflorenc/awx-launch/internal/platform"
)

// Controller is the subset of the controller API the workflow needs.
type Controller interface {
	GetToken(ctx context.Context, username, password string) (string, error)
	CreateInventory(ctx context.Context, token, name, description string, organizationID int) (int, error)
	AddHost(ctx context.Context, token string, inventoryID int, name, description string) error
	TriggerJob(ctx context.Context, token string, templateID, inventoryID int, extraVars models.ExtraVars) (int, error)
	WaitForCompletion(ctx context.Context, token string, jobID int) (string, error)
}

// Emitter writes step outputs.
type Emitter interface {
	EmitOutputs(outputs models.Outputs) error
	EmitSecretOutputs(outputs models.Outputs) error
}

var _ Controller = (*platform.AWX)(nil)
var _ Emitter = (*output.Emitter)(nil)

// Runner executes the workflow once.
type Runner struct {
	Controller Controller
	Emitter    Emitter
	Logger     log.Logger
	Config     *config.Config
}

// Run executes the workflow and returns the plain outputs it wrote.
//
// Any controller error aborts the run before outputs are written. Missing
// target hosts or a zero organization stop the run early without an error;
// the outputs gathered so far are still written.
func (r *Runner) Run(ctx context.Context) (models.Outputs, error) {
	var outputs models.Outputs
	logger := r.logger()
	cfg := r.Config

	token, err := r.Controller.GetToken(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return outputs, err
	}
	level.Debug(logger).Log("msg", "token acquired", "user", cfg.Username)

	if cfg.SaveToken {
		if err := r.emit(r.Emitter.EmitSecretOutputs, models.NewOutputs(models.OutputToken, token)); err != nil {
			return outputs, err
		}
	}

	if err := r.launch(ctx, token, &outputs); err != nil {
		return outputs, err
	}

	if err := r.emit(r.Emitter.EmitOutputs, outputs); err != nil {
		return outputs, err
	}
	return outputs, nil
}

// launch provisions the inventory, triggers the job and waits for it.
// A nil error with no job outputs means the run stopped early.
func (r *Runner) launch(ctx context.Context, token string, outputs *models.Outputs) error {
	logger := r.logger()
	cfg := r.Config

	templateID, ok := cfg.JobTemplate()
	if !ok {
		level.Info(logger).Log("msg", "no job template requested")
		return nil
	}
	level.Info(logger).Log("msg", "job requested", "template", templateID)

	if cfg.TargetHostname == "" && len(cfg.TargetHostnames) == 0 {
		level.Error(logger).Log("msg", "no target hostnames provided")
		return nil
	}
	hosts := MergeHosts(cfg.TargetHostnames, cfg.TargetHostname)

	inventoryID, ok := cfg.Inventory()
	switch {
	case !ok:
		level.Info(logger).Log("msg", "no inventory id provided, one will be created")
		if cfg.OrganizationID <= 0 {
			level.Error(logger).Log("msg", "no organization provided")
			return nil
		}

		name := InventoryName(cfg.InventoryName, cfg.TargetHostname, hosts)
		id, err := r.Controller.CreateInventory(ctx, token, name, cfg.InventoryDescription, cfg.OrganizationID)
		if err != nil {
			return err
		}
		inventoryID = id
		outputs.Set(models.OutputInventoryID, strconv.Itoa(inventoryID))
		level.Info(logger).Log("msg", "created inventory", "inventory", inventoryID, "name", name)

		for _, host := range hosts {
			if err := r.Controller.AddHost(ctx, token, inventoryID, host, cfg.TargetDescription); err != nil {
				return err
			}
			level.Info(logger).Log("msg", "added host to inventory", "inventory", inventoryID, "host", host)
		}

	case bool(cfg.AddToInventory):
		// Only the single hostname is registered into an existing inventory;
		// the list form is used for new inventories only.
		if cfg.TargetHostname == "" {
			level.Warn(logger).Log("msg", "add to inventory requested without a target hostname", "inventory", inventoryID)
			break
		}
		if err := r.Controller.AddHost(ctx, token, inventoryID, cfg.TargetHostname, cfg.TargetDescription); err != nil {
			return err
		}
		level.Info(logger).Log("msg", "added host to existing inventory", "inventory", inventoryID, "host", cfg.TargetHostname)
	}

	jobID, err := r.Controller.TriggerJob(ctx, token, templateID, inventoryID, cfg.ExtraVars)
	if err != nil {
		return err
	}
	outputs.Set(models.OutputJobID, strconv.Itoa(jobID))
	level.Info(logger).Log("msg", "job launched", "job", jobID, "template", templateID, "inventory", inventoryID)

	status, err := r.Controller.WaitForCompletion(ctx, token, jobID)
	if err != nil {
		return err
	}
	outputs.Set(models.OutputJobStatus, status)
	outputs.Set(models.OutputJobURL, platform.JobURL(cfg.Credentials().BaseURL(), jobID))
	level.Info(logger).Log("msg", "job completed", "job", jobID, "status", status)
	return nil
}

// emit writes outputs through fn. A sink without a configured file is
// reported and skipped so the step can run outside a CI runner.
func (r *Runner) emit(fn func(models.Outputs) error, outputs models.Outputs) error {
	err := fn(outputs)
	if errors.Is(err, output.ErrNoPath) {
		level.Warn(r.logger()).Log("msg", "outputs not written", "err", err, "entries", outputs.Len())
		return nil
	}
	return err
}

func (r *Runner) logger() log.Logger {
	if r.Logger == nil {
		return log.NewNopLogger()
	}
	return r.Logger
}

// MergeHosts returns the list entries followed by single, when set.
func MergeHosts(list []string, single string) []string {
	hosts := make([]string, 0, len(list)+1)
	hosts = append(hosts, list...)
	if single != "" {
		hosts = append(hosts, single)
	}
	return hosts
}

// InventoryName picks the name of a new inventory: the explicit name, else
// the single hostname, else the first merged host.
func InventoryName(explicit, single string, hosts []string) string {
	switch {
	case explicit != "":
		return explicit
	case single != "":
		return single
	case len(hosts) > 0:
		return hosts[0]
	}
	return ""
}
