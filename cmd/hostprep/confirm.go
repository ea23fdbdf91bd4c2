package main

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/execution"
)

// pendingConfirmation returns the connectivity-risk steps in the plan
// that have not already been confirmed via --confirm.
func pendingConfirmation(plan *execution.Plan, confirmed []string) []string {
	already := make(map[string]bool, len(confirmed))
	for _, id := range confirmed {
		already[id] = true
	}

	pending := make([]string, 0)
	for _, id := range plan.ConnectivityRiskSteps() {
		if !already[id] {
			pending = append(pending, id)
		}
	}
	return pending
}

// confirmConnectivityRisk prompts the operator to approve the listed
// steps.
func confirmConnectivityRisk(steps []string) bool {
	if len(steps) == 0 {
		return true
	}
	fmt.Println("These steps can sever your access to the target if they go wrong:")
	for _, step := range steps {
		fmt.Printf("  - %s\n", step)
	}
	fmt.Print("Proceed? [y/N]: ")
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
