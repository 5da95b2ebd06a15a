package runner

import (
	"github.com/projectdiscovery/gologger"
	updateutils "github.com/projectdiscovery/utils/update"
)

var banner = (`
   __   __    _
  / /__/ /_  (_)___  ________  ____ _
 / //_/ __ \/ / __ \/ ___/ _ \/ __ '/
/ ,< / /_/ / / /_/ / /  /  __/ /_/ /
/_/|_/_.___/_/\____/_/   \___/\__, /
                             /____/
`)

var version = "v0.0.1"

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", banner)
	gologger.Print().Msgf("\t\tregex search over IBF-indexed corpora\n\n")
}

// GetUpdateCallback returns a callback function that updates kbioreg
func GetUpdateCallback() func() {
	return func() {
		showBanner()
		updateutils.GetUpdateToolCallback("kbioreg", version)()
	}
}
