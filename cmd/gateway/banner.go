package gateway

import (
	"fmt"

	"github.com/labstack/gommon/color"
)

func banner(version string, port int, storeDir, gatewayURL string) string {
	return fmt.Sprintf(
		`
%s doodlemint gateway %s

Store    %s
Locators %s
------------------------------
⇨ HTTP server started on %s
⇨ metrics at %s`,
		color.Cyan("⬢"),
		color.Red(version),
		color.Grey(storeDir),
		color.Grey(gatewayURL),
		color.Green(fmt.Sprintf("http://localhost:%d", port)),
		color.Blue(fmt.Sprintf("http://localhost:%d/metrics", port)),
	)
}
