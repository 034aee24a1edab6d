package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/shed/internal/buildinfo"
	"github.com/aidanlsb/shed/internal/ui"
)

const defaultModulePath = "github.com/aidanlsb/shed"

type versionInfo struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

var readBuildInfo = debug.ReadBuildInfo

func showVersion(cmd *cobra.Command, _ []string, _ map[string]interface{}) error {
	info := currentVersionInfo()

	if isJSONOutput() {
		outputSuccess(cmd, info, nil)
		return nil
	}

	tbl := ui.NewTable(2)
	tbl.AddRow("module", info.ModulePath)
	if info.Commit != "" {
		tbl.AddRow("commit", info.Commit)
	}
	if info.CommitTime != "" {
		tbl.AddRow("commit_time", info.CommitTime)
	}
	tbl.AddRow("go", info.GoVersion)
	tbl.AddRow("platform", info.Platform)
	tbl.AddRow("modified", fmt.Sprint(info.Modified))

	fmt.Fprintf(cmd.OutOrStdout(), "shed %s\n%s", info.Version, tbl.String())
	return nil
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:    "devel",
		ModulePath: defaultModulePath,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if ok && bi != nil {
		if bi.Main.Path != "" {
			info.ModulePath = bi.Main.Path
		}
		info.Version = normalizeVersion(bi.Main.Version)
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		info.Commit = buildSetting(bi, "vcs.revision")
		info.CommitTime = buildSetting(bi, "vcs.time")
		info.Modified = strings.EqualFold(buildSetting(bi, "vcs.modified"), "true")
	}

	// Release binaries carry ldflags values; prefer them over empty VCS data.
	if info.Version == "devel" && buildinfo.Version != "" {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = buildinfo.Date
	}
	return info
}

func normalizeVersion(version string) string {
	if version == "" || version == "(devel)" {
		return "devel"
	}
	return version
}

func buildSetting(info *debug.BuildInfo, key string) string {
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
