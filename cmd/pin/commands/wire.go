package commands

import (
	"github.com/spf13/viper"

	"github.com/southflowpeak/pin/internal/agent"
	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/config"
	"github.com/southflowpeak/pin/internal/dispatch"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/overlay"
	"github.com/southflowpeak/pin/internal/permission"
	"github.com/southflowpeak/pin/internal/pinlog"
	"github.com/southflowpeak/pin/internal/settings"
	"github.com/southflowpeak/pin/internal/window"
	"github.com/southflowpeak/pin/internal/workspace"
)

var log = pinlog.Component("cmd_pin")

// built bundles everything runServe/runMCPServe share: the loaded
// configuration, the window enumerator, and a dispatcher wrapping a
// freshly constructed state machine.
type built struct {
	cfg        config.Config
	enumerator *window.Enumerator
	dispatcher *dispatch.Dispatcher
	agent      *agent.Agent
}

func wire() (*built, error) {
	v := viper.GetViper()
	cfg, err := config.Load(v, ConfigFile())
	if err != nil {
		return nil, err
	}
	pinlog.Init(cfg.LogLevel, cfg.LogPretty)

	extraExcluded, err := config.ExcludedBundleIDs(cfg.ExcludedBundleIDsFile)
	if err != nil {
		return nil, err
	}
	enumerator := window.NewPlatform(extraExcluded)

	prefsPath, err := settings.DefaultPath()
	if err != nil {
		return nil, err
	}
	opacity := settings.NewOpacityStore(settings.NewFileStore(prefsPath))

	a := agent.New(agent.Config{
		Enumerator: enumerator,
		Permission: permission.New(),
		Opacity:    opacity,
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(overlay.NewPlatform(), target, probe)
		},
		NewStream: capture.NewPlatformStreamFactory(),
		Workspace: workspace.New(),
	})

	d := dispatch.New(a, enumerator, cfg.ResponseFilePath)

	return &built{cfg: cfg, enumerator: enumerator, dispatcher: d, agent: a}, nil
}
