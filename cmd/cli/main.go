package main

import "github.com/dicom-triage/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
