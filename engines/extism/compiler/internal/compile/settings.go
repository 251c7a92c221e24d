package compile

import (
	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"
)

// Settings holds configuration for compiling and instantiating a plugin.
type Settings struct {
	// RuntimeConfig customizes the wazero runtime the plugin is compiled in.
	RuntimeConfig wazero.RuntimeConfig
}

// DefaultSettings returns settings for the native wazero compiler.
func DefaultSettings() *Settings {
	return &Settings{
		RuntimeConfig: wazero.NewRuntimeConfig(),
	}
}

// InstanceConfig returns the per-instance configuration. Formula plugins
// import nothing beyond the Extism kernel, so instances get no system access.
func InstanceConfig() extismSDK.PluginInstanceConfig {
	return extismSDK.PluginInstanceConfig{
		ModuleConfig: wazero.NewModuleConfig(),
	}
}
