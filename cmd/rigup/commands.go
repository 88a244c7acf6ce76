package rigup

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/rigup/internal/version"
	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/execution"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/manifest"
	"github.com/arthur-debert/rigup/pkg/node"
	"github.com/arthur-debert/rigup/pkg/registry"
	"github.com/arthur-debert/rigup/pkg/types"
)

// manifestDir resolves the manifest directory from the --manifests flag,
// falling back to the RIGUP_MANIFESTS environment variable
func manifestDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Root().PersistentFlags().GetString("manifests")
	if dir == "" {
		dir = os.Getenv("RIGUP_MANIFESTS")
	}
	if dir == "" {
		return "", fmt.Errorf(MsgErrNoManifestDir)
	}
	return dir, nil
}

func loadIndex(cmd *cobra.Command) (*registry.Index, error) {
	dir, err := manifestDir(cmd)
	if err != nil {
		return nil, err
	}

	idx, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadManifests, err)
	}
	return idx, nil
}

// loadRootConfig reads the optional --config TOML file into the values
// every action sees before package defaults are merged in
func loadRootConfig(path string) (config.Config, error) {
	if path == "" {
		return config.New(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}
	cfg, err := config.FromMap(k.Raw())
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}
	return cfg, nil
}

func runUser(cmd *cobra.Command) string {
	userName, _ := cmd.Root().PersistentFlags().GetString("user")
	if userName != "" {
		return userName
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// refsCompletion provides shell completion for action references
func refsCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	idx, err := loadIndex(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var refs []string
	for _, name := range idx.Names() {
		pkg, ok := idx.Get(name)
		if !ok {
			continue
		}
		for _, action := range pkg.ActionNames() {
			refs = append(refs, action+execution.RefSeparator+name)
		}
	}
	return refs, cobra.ShellCompDirectiveNoFileComp
}

// plan is the document printed for --dry-run
type plan struct {
	User  string   `yaml:"user"`
	Tasks []string `yaml:"tasks"`
	Steps []string `yaml:"steps"`
}

func printPlan(p plan) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// runBehavior executes every ref with the given behavior, either against
// the real host or as a recorded preview when --dry-run is set
func runBehavior(cmd *cobra.Command, refs []string, behavior types.Behavior, errFormat string) error {
	dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	userName := runUser(cmd)

	idx, err := loadIndex(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadRootConfig(cfgFile)
	if err != nil {
		return err
	}

	log.Info().
		Str("user", userName).
		Str("behavior", string(behavior)).
		Bool("dry_run", dryRun).
		Strs("refs", refs).
		Msg("Starting run")

	if dryRun {
		ctx, mock := execution.NewMock(userName, cfg, idx, logging.NewSink("preview"))
		for _, ref := range refs {
			if _, err := ctx.Execute(ref, behavior); err != nil {
				return fmt.Errorf(errFormat, ref, err)
			}
		}
		if err := printPlan(plan{User: userName, Tasks: refs, Steps: mock.Journal()}); err != nil {
			return err
		}
		fmt.Println(MsgDryRunNotice)
		return nil
	}

	n := node.NewLocal(userName, cfg, logging.NewSink("node"))
	ctx := execution.New(n, idx)
	for _, ref := range refs {
		if _, err := ctx.Execute(ref, behavior); err != nil {
			return fmt.Errorf(errFormat, ref, err)
		}
		fmt.Printf(MsgTaskDone, ref)
	}
	return nil
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "apply <action:package>...",
		Short:             MsgApplyShort,
		Args:              cobra.MinimumNArgs(1),
		GroupID:           "core",
		ValidArgsFunction: refsCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBehavior(cmd, args, types.BehaviorApply, MsgErrApply)
		},
	}
}

func newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "revert <action:package>...",
		Short:             MsgRevertShort,
		Args:              cobra.MinimumNArgs(1),
		GroupID:           "core",
		ValidArgsFunction: refsCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBehavior(cmd, args, types.BehaviorRevert, MsgErrRevert)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "validate <action:package>...",
		Short:             MsgValidateShort,
		Args:              cobra.MinimumNArgs(1),
		GroupID:           "core",
		ValidArgsFunction: refsCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
			userName := runUser(cmd)

			idx, err := loadIndex(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadRootConfig(cfgFile)
			if err != nil {
				return err
			}

			n := node.NewLocal(userName, cfg, logging.NewSink("node"))
			ctx := execution.New(n, idx)

			failed := 0
			for _, ref := range args {
				res, err := ctx.Execute(ref, types.BehaviorValidate)
				if err != nil {
					return fmt.Errorf(MsgErrValidate, ref, err)
				}
				switch ok := res.(type) {
				case nil:
					fmt.Printf(MsgValidateSkipped, ref)
				case bool:
					if ok {
						fmt.Printf(MsgValidateOK, ref)
					} else {
						failed++
						fmt.Printf(MsgValidateFailed, ref)
					}
				default:
					fmt.Printf(MsgValidateOK, ref)
				}
			}

			if failed > 0 {
				return fmt.Errorf(MsgErrChecksFailed, failed)
			}
			fmt.Print(MsgValidateAllOK)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   MsgListShort,
		Long:    MsgListLong,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(cmd)
			if err != nil {
				return err
			}

			names := idx.Names()
			if len(names) == 0 {
				fmt.Println(MsgNoPackagesFound)
				return nil
			}

			for _, name := range names {
				pkg, ok := idx.Get(name)
				if !ok {
					continue
				}
				fmt.Println(formatBoldUpper(name))
				for _, action := range pkg.ActionNames() {
					fmt.Printf(MsgPackageItem, action)
				}
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "init <package-name>",
		Short:   MsgInitShort,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := manifestDir(cmd)
			if err != nil {
				return err
			}

			name := args[0]
			path := filepath.Join(dir, name+".toml")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf(MsgErrManifestExist, path)
			}

			out, err := manifest.Starter(name)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, 0o644); err != nil {
				return err
			}

			fmt.Printf(MsgManifestCreated, path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rigup version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
