package signer

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser opens the URL in the operator's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		if err := exec.Command("xdg-open", url).Start(); err != nil {
			return fmt.Errorf("open browser: %w", err)
		}
		return nil
	}
}
