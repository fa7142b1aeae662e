package plugin

import (
	"context"
	"errors"
	"fmt"
)

// ErrActionUnsupported is returned when a plugin does not declare the action.
var ErrActionUnsupported = errors.New("action not supported by plugin")

// Dispatcher sends fired actions to the plugin that handles them.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
}

// NewDispatcher creates a Dispatcher over a manager and an executor.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	return &Dispatcher{manager: manager, executor: executor}
}

// Dispatch runs req.Action on the named plugin. A response with
// Success=false is returned together with an error.
func (d *Dispatcher) Dispatch(ctx context.Context, pluginName string, req *Request) (*Response, error) {
	p, err := d.manager.Get(pluginName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pluginName, err)
	}
	if !p.Manifest.Supports(req.Action) {
		return nil, fmt.Errorf("%s/%s: %w", pluginName, req.Action, ErrActionUnsupported)
	}

	resp, err := d.executor.Execute(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s/%s failed: %s", pluginName, req.Action, resp.Error)
	}
	return resp, nil
}
