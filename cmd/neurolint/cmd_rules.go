package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"neurolint/internal/rules"
)

var (
	rulesExportPath string
	rulesImportPath string
	rulesEditID     string
	rulesEditReplacement string
	rulesEditConfidence  float64
	rulesEditHasConf     bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and manage the learned rule store",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every rule in the store",
	RunE:  runRulesList,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the rule store as JSON",
	RunE:  runRulesExport,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the rule store from a previously exported JSON file",
	RunE:  runRulesImport,
}

var rulesEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a rule's replacement and/or confidence",
	RunE:  runRulesEdit,
}

var rulesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the rule store",
	RunE:  runRulesReset,
}

func init() {
	rulesExportCmd.Flags().StringVar(&rulesExportPath, "out", "", "Write exported JSON to this file instead of stdout")
	rulesImportCmd.Flags().StringVar(&rulesImportPath, "in", "", "Read JSON to import from this file (required)")
	rulesEditCmd.Flags().StringVar(&rulesEditID, "id", "", "Rule ID to edit (required)")
	rulesEditCmd.Flags().StringVar(&rulesEditReplacement, "replacement", "", "New regex replacement template")
	rulesEditCmd.Flags().Float64Var(&rulesEditConfidence, "confidence", 0, "New confidence in [0,1]")
	rulesEditCmd.MarkFlagRequired("id")

	rulesCmd.AddCommand(rulesListCmd, rulesExportCmd, rulesImportCmd, rulesEditCmd, rulesResetCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	all := a.store.All()
	if len(all) == 0 {
		fmt.Println("no rules in store")
		return nil
	}
	for _, r := range all {
		fmt.Printf("%-40s origin=%-9s confidence=%.2f freq=%d match=%s\n", r.ID, r.Origin, r.Confidence, r.Frequency, r.Match.Regex)
	}
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.store.Export()
	if err != nil {
		return err
	}
	if rulesExportPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(rulesExportPath, data, 0644)
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	if rulesImportPath == "" {
		return fmt.Errorf("--in is required")
	}
	data, err := os.ReadFile(rulesImportPath)
	if err != nil {
		return err
	}

	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Import(data); err != nil {
		return err
	}
	fmt.Println("imported rule store")
	return nil
}

func runRulesEdit(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	var found *rules.Rule
	for _, r := range a.store.All() {
		if r.ID == rulesEditID {
			found = r
			break
		}
	}
	if found == nil {
		return fmt.Errorf("rule not found: %s", rulesEditID)
	}

	transform := found.Transform
	if cmd.Flags().Changed("replacement") {
		transform.Replacement = rulesEditReplacement
	}
	var confPtr *float64
	if cmd.Flags().Changed("confidence") {
		confPtr = &rulesEditConfidence
	}

	if err := a.store.EditRule(rulesEditID, transform, confPtr); err != nil {
		return err
	}
	fmt.Printf("updated rule %s\n", rulesEditID)
	return nil
}

func runRulesReset(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Println("rule store reset")
	return nil
}
