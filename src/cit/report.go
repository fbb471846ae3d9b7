package cit

import (
	"encoding/json"
	"fmt"
	"os"
)

type jsonReport struct {
	Image      string `json:"image"`
	Mode       string `json:"mode"`
	Timestamp  string `json:"timestamp"`
	Shell      string `json:"shell"`
	Port       string `json:"port"`
	Health     string `json:"health"`
	Screenshot string `json:"screenshot"`
	Verify     string `json:"verify"`
	Result     string `json:"result"`
}

// WriteReport writes the machine-readable test result to path.
func WriteReport(path string, r *Result) error {
	verdict := "fail"
	if r.Passed() {
		verdict = "pass"
	}
	rep := jsonReport{
		Image:      r.Image,
		Mode:       r.Mode.String(),
		Timestamp:  r.Timestamp.Format("2006-01-02T15:04:05Z"),
		Shell:      string(r.Shell),
		Port:       string(r.Port),
		Health:     string(r.Health),
		Screenshot: string(r.Screenshot),
		Verify:     string(r.Verify),
		Result:     verdict,
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing test report: %w", err)
	}
	return nil
}
