package commands

import (
	"github.com/southflowpeak/pin/internal/dispatch"
	"github.com/southflowpeak/pin/internal/model"
)

// toTargetDescriptors converts a list-windows response into the
// descriptor shape pickertui expects, since dispatch's windowJSON
// carries the same fields but is not itself exported.
func toTargetDescriptors(resp dispatch.Response) []model.TargetDescriptor {
	out := make([]model.TargetDescriptor, 0, len(resp.Windows))
	for _, w := range resp.Windows {
		out = append(out, model.TargetDescriptor{
			PID:         w.PID,
			WindowID:    w.WindowID,
			AppName:     w.AppName,
			WindowTitle: w.WindowTitle,
			Bounds:      w.Bounds,
		})
	}
	return out
}
