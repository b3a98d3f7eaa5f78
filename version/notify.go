package version

import (
	"fmt"

	"github.com/multidl-cli/multidl/color"
	"github.com/multidl-cli/multidl/constant"
	"github.com/multidl-cli/multidl/icon"
	"github.com/multidl-cli/multidl/key"
	"github.com/multidl-cli/multidl/style"
	"github.com/multidl-cli/multidl/util"
	"github.com/spf13/viper"
)

// Notify displays a terminal alert if a more recent stable application version is available.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(fmt.Sprintf("%s Checking for a newer release...", icon.Get(icon.Progress)))
	latest, err := Latest()
	erase()
	if err != nil {
		return
	}

	if comp, err := Compare(latest, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/multidl-cli/multidl/releases/tag/v"+latest),
	)
}
