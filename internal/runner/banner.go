package runner

import (
	"github.com/projectdiscovery/gologger"

	"github.com/projectdiscovery/wol-agent/pkg/version"
)

const banner = `
              __                               __
 _      ______/ /      ____ _____ ____  ____  / /_
| | /| / / __ \/ /_____/ __ '/ __ '/ _ \/ __ \/ __/
| |/ |/ / /_/ / /_____/ /_/ / /_/ /  __/ / / / /_
|__/|__/\____/_/      \__,_/\__, /\___/_/ /_/\__/
                           /____/
`

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", banner)
	gologger.Print().Msgf("\t\twol-agent %s\n\n", version.GetVersion())
}
