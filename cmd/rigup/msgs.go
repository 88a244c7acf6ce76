package rigup

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "A declarative host provisioning tool"
	MsgApplyShort      = "Apply actions to the host"
	MsgRevertShort     = "Revert previously applied actions"
	MsgValidateShort   = "Check whether actions already hold on the host"
	MsgListShort       = "List all available packages and their actions"
	MsgListLong        = "List displays all packages found in the manifest directory and the actions each one declares."
	MsgInitShort       = "Create a starter manifest for a new package"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgDryRunNotice    = "\nDRY RUN MODE - No changes were made"
	MsgTaskDone        = "  ✓ %s\n"
	MsgValidateOK      = "  ✓ %s\n"
	MsgValidateFailed  = "  ✗ %s\n"
	MsgValidateSkipped = "  - %s (no validate behavior)\n"
	MsgNoPackagesFound = "No packages found."
	MsgPackageItem     = "  %s\n"
	MsgManifestCreated = "Created manifest %s\n"
	MsgValidateAllOK   = "\nAll checks passed.\n"

	// Error messages
	MsgErrNoManifestDir = "no manifest directory: pass --manifests or set RIGUP_MANIFESTS"
	MsgErrLoadManifests = "failed to load manifests: %w"
	MsgErrLoadConfig    = "failed to load config: %w"
	MsgErrApply         = "failed to apply %s: %w"
	MsgErrRevert        = "failed to revert %s: %w"
	MsgErrValidate      = "failed to validate %s: %w"
	MsgErrManifestExist = "manifest already exists: %s"
	MsgErrChecksFailed  = "%d check(s) failed"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun    = "Preview commands without executing them"
	MsgFlagUser      = "User to run actions as (default: current user)"
	MsgFlagManifests = "Directory containing package manifests (default: $RIGUP_MANIFESTS)"
	MsgFlagConfig    = "Optional TOML file with root configuration values"
)

// MsgRootLong is the root command's long description
const MsgRootLong = `rigup provisions hosts from declarative packages: each package groups
named actions that know how to apply themselves, revert themselves, and
validate that they already hold. Packages are loaded from TOML or YAML
manifests, and every run can be previewed with --dry-run.`
