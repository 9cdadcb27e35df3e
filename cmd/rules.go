package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var (
	ruleJavaScript string
	ruleCookies    string
	retentionDays  int
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage privacy defaults and per-site rules",
	Long: `Manage the global privacy defaults and the ordered list of site rules.

A rule pattern is matched against the whole address; '*' matches any run of
characters. The first matching rule wins and each setting it leaves unset
falls back to the global default.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the privacy defaults and site rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		printPrivacySettings(cmd.OutOrStdout(), p.privacySettings())
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Append a site rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		js, err := parseOverride("javascript", ruleJavaScript)
		if err != nil {
			return err
		}
		cookies, err := parseOverride("cookies", ruleCookies)
		if err != nil {
			return err
		}

		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		store := internal.NewPrivacyPolicyStore(p.store)
		settings, rule, err := store.Load().AddRule(strings.TrimSpace(args[0]), js, cookies)
		if err != nil {
			return err
		}
		if err := store.Save(settings); err != nil {
			return fmt.Errorf("failed to save rule: %w", err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Added rule %s for %s", rule.ID, rule.Pattern))
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a site rule by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		store := internal.NewPrivacyPolicyStore(p.store)
		settings := store.Load()
		id, err := findRuleID(settings.SiteRules, args[0])
		if err != nil {
			return err
		}
		settings, _ = settings.RemoveRule(id)
		if err := store.Save(settings); err != nil {
			return fmt.Errorf("failed to save rules: %w", err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed rule %s", id))
		return nil
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <address>",
	Short: "Show the effective policy for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, ok := internal.NormalizeAddress(args[0])
		if !ok {
			return fmt.Errorf("invalid address: %q", args[0])
		}

		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		settings := p.privacySettings()
		policy := internal.ResolveEffective(address, settings)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n", titleStyle.Render(address))
		if rule, ok := internal.MatchingRule(address, settings); ok {
			fmt.Fprintf(w, "  rule:                %s %s\n", rule.Pattern, idStyle.Render(rule.ID))
		} else {
			fmt.Fprintf(w, "  rule:                %s\n", idStyle.Render("(global defaults)"))
		}
		fmt.Fprintf(w, "  javascript:          %s\n", onOff(policy.JavaScriptEnabled))
		fmt.Fprintf(w, "  third-party cookies: %s\n", onOff(policy.ThirdPartyCookiesAllowed))
		return nil
	},
}

var rulesDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Change the global privacy defaults",
	Long: `Change the global privacy defaults. Only the flags given are changed.

--retention accepts 1, 7, 30, 90, 365 or -1 (never delete).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		store := internal.NewPrivacyPolicyStore(p.store)
		settings := store.Load()
		flags := cmd.Flags()
		if flags.Changed("javascript") {
			v, err := parseSwitch("javascript", ruleJavaScript)
			if err != nil {
				return err
			}
			settings.JavaScriptEnabled = v
		}
		if flags.Changed("cookies") {
			v, err := parseSwitch("cookies", ruleCookies)
			if err != nil {
				return err
			}
			settings.ThirdPartyCookiesAllowed = v
		}
		if flags.Changed("retention") {
			if !validRetention(retentionDays) {
				return fmt.Errorf("unsupported retention %d days", retentionDays)
			}
			settings.HistoryRetentionDays = retentionDays
		}
		if err := store.Save(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		printPrivacySettings(cmd.OutOrStdout(), settings)
		return nil
	},
}

// parseOverride maps on/off to a rule override; "" and "default" inherit
func parseOverride(name, value string) (*bool, error) {
	if value == "" || value == "default" {
		return nil, nil
	}
	v, err := parseSwitch(name, value)
	if err != nil {
		return nil, err
	}
	return internal.BoolPtr(v), nil
}

func parseSwitch(name, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "allow", "enabled":
		return true, nil
	case "off", "false", "block", "disabled":
		return false, nil
	}
	return false, fmt.Errorf("invalid --%s value %q (use on or off)", name, value)
}

func validRetention(days int) bool {
	for _, d := range internal.RetentionChoices {
		if d == days {
			return true
		}
	}
	return false
}

func findRuleID(rules []internal.SiteRule, ref string) (string, error) {
	var matches []string
	for _, r := range rules {
		if r.ID == ref {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no rule with id %q", ref)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("rule id %q is ambiguous (%d matches)", ref, len(matches))
}

func onOff(b bool) string {
	if b {
		return successStyle.Render("on")
	}
	return warningStyle.Render("off")
}

func overrideText(v *bool) string {
	if v == nil {
		return "default"
	}
	return onOff(*v)
}

func retentionText(days int) string {
	if days == internal.RetentionNever || days <= 0 {
		return "never delete"
	}
	return strconv.Itoa(days) + " days"
}

func printPrivacySettings(w io.Writer, settings internal.PrivacySettings) {
	fmt.Fprintln(w, sectionStyle.Render("Privacy defaults"))
	fmt.Fprintf(w, "  javascript:          %s\n", onOff(settings.JavaScriptEnabled))
	fmt.Fprintf(w, "  third-party cookies: %s\n", onOff(settings.ThirdPartyCookiesAllowed))
	fmt.Fprintf(w, "  history retention:   %s\n", retentionText(settings.HistoryRetentionDays))
	fmt.Fprintln(w)

	if len(settings.SiteRules) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No site rules"))
		return
	}
	fmt.Fprintln(w, sectionStyle.Render("Site rules"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATTERN\tJAVASCRIPT\tCOOKIES")
	for _, r := range settings.SiteRules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", idStyle.Render(r.ID), r.Pattern, overrideText(r.JavaScriptOverride), overrideText(r.ThirdPartyCookiesOverride))
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd, rulesCheckCmd, rulesDefaultsCmd)

	rulesAddCmd.Flags().StringVar(&ruleJavaScript, "javascript", "", "JavaScript override: on, off or default")
	rulesAddCmd.Flags().StringVar(&ruleCookies, "cookies", "", "Third-party cookie override: on, off or default")
	rulesDefaultsCmd.Flags().StringVar(&ruleJavaScript, "javascript", "", "Allow JavaScript: on or off")
	rulesDefaultsCmd.Flags().StringVar(&ruleCookies, "cookies", "", "Allow third-party cookies: on or off")
	rulesDefaultsCmd.Flags().IntVar(&retentionDays, "retention", 30, "History retention in days")
}
