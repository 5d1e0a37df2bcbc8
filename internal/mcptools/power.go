package mcptools

import (
	"context"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/logic/power"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	toolNameStatus = "irda_power_status"
	toolNameSet    = "irda_power_set"
)

// Device is the part of power.Device the tools use.
type Device interface {
	Apply(enable bool) error
	Status() power.State
	Snapshot() power.Snapshot
}

// setResult is returned by irda_power_set. Errno is 0 on success and the
// negative errno of the failure otherwise.
type setResult struct {
	power.Snapshot
	Errno int    `json:"errno"`
	Error string `json:"error,omitempty"`
}

// PowerTools returns the registrations for the power device.
func PowerTools(dev Device) []Registration {
	return []Registration{
		powerStatus(dev),
		powerSet(dev),
	}
}

func powerStatus(dev Device) Registration {
	tool := mcp.NewTool(toolNameStatus,
		mcp.WithDescription("Report the IrDA transceiver power path and its work state (-1 unknown, 0 off, 1 on)."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dev.Status()
		return JSONResult(dev.Snapshot()), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func powerSet(dev Device) Registration {
	tool := mcp.NewTool(toolNameSet,
		mcp.WithDescription("Switch the IrDA transceiver supply on or off. A request matching the current state does not touch the hardware."),
		mcp.WithBoolean("enable",
			mcp.Required(),
			mcp.Description("true to power the transceiver, false to power it down"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		v, ok := args["enable"]
		if !ok {
			return ErrorResult("enable is required"), nil
		}
		enable, ok := v.(bool)
		if !ok {
			return ErrorResult("enable must be a boolean"), nil
		}

		debug.Live("mcp: %s enable=%v", toolNameSet, enable)
		if err := dev.Apply(enable); err != nil {
			res := JSONResult(setResult{
				Snapshot: dev.Snapshot(),
				Errno:    power.Errno(err),
				Error:    err.Error(),
			})
			res.IsError = true
			return res, nil
		}
		return JSONResult(setResult{Snapshot: dev.Snapshot()}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
