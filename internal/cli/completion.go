package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for flowkeeper.

Node, graph and kind arguments complete from the stored project.

Bash:
  $ source <(flowkeeper completion bash)

Zsh:
  $ flowkeeper completion zsh > "${fpath[1]}/_flowkeeper"

Fish:
  $ flowkeeper completion fish > ~/.config/fish/completions/flowkeeper.fish

PowerShell:
  PS> flowkeeper completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}

	return cmd
}

// storedProject reads the current project without opening a session, so
// completing never creates a project. Completion skips PersistentPreRunE,
// hence the explicit setup.
func (c *CLI) storedProject(cmd *cobra.Command) (flow.ProjectSnapshot, bool) {
	if err := c.setup(cmd, nil); err != nil {
		return flow.ProjectSnapshot{}, false
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, c.Config.Storage)
	if err != nil {
		return flow.ProjectSnapshot{}, false
	}
	defer store.Close()

	data, ok, err := store.Get(ctx, c.keyer().ProjectKey(c.project))
	if err != nil || !ok {
		return flow.ProjectSnapshot{}, false
	}
	p, report := snapshot.DecodeProject(data, snapshot.Options{})
	return p, !report.FellBack
}

// completeNodes completes node ids of the graph named by --graph, or of the
// active graph. Only the first n positional arguments complete; n <= 0
// completes all of them.
func (c *CLI) completeNodes(n int, containersOnly bool) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if n > 0 && len(args) >= n {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		p, ok := c.storedProject(cmd)
		if !ok {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		g, ok := p.Active()
		if graphID, _ := cmd.Flags().GetString("graph"); graphID != "" {
			g, ok = p.Graph(graphID)
		}
		if !ok {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []string
		for _, node := range g.Nodes {
			if containersOnly && !node.IsContainer() {
				continue
			}
			if strings.HasPrefix(node.ID, toComplete) {
				out = append(out, node.ID+"\t"+string(node.Type)+" "+node.Label())
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeGraphs completes graph ids of the current project.
func (c *CLI) completeGraphs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	p, ok := c.storedProject(cmd)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, g := range p.Graphs {
		if strings.HasPrefix(g.ID, toComplete) {
			out = append(out, g.ID+"\t"+g.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeKinds completes node kinds from the catalog.
func completeKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, k := range catalog.Kinds() {
		if strings.HasPrefix(string(k), toComplete) {
			p, _ := catalog.Lookup(k)
			out = append(out, string(k)+"\t"+p.Title)
		}
	}
	sort.Strings(out)
	return out, cobra.ShellCompDirectiveNoFileComp
}
