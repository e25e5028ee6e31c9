package cli

import (
	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/ralt/pkgmanifest/internal/pipeline"
	"github.com/ralt/pkgmanifest/internal/repodata"
	"github.com/spf13/cobra"
)

// runPipeline wires the default backend into the pipeline and runs the
// configured workflow. The repository set lives for this run only.
func runPipeline(cmd *cobra.Command, cfg pipeline.Config, gpgKeyPath string) error {
	var opts []repodata.Option
	if gpgKeyPath != "" {
		opts = append(opts, repodata.WithKeyring(gpgKeyPath))
	}
	backend := repodata.NewBackend(opts...)

	deps := pipeline.Deps{
		Repos:    backend,
		Resolver: backend,
		Modules:  &dnfapi.ExecModuleManager{},
	}
	if cfg.Subcommand == pipeline.CmdInstall {
		// The transaction runs on the host package manager, which does
		// not see the in-process repository set; registrations fan out
		// to both so resolve and install read the same repositories.
		transactor := &dnfapi.ExecTransactor{}
		deps.Transactor = transactor
		deps.Repos = dnfapi.MultiRepoSet(backend, transactor)
	} else {
		deps.Transactor = backend
	}

	command := pipeline.New(cfg, deps)
	if err := command.Configure(); err != nil {
		return err
	}
	return command.Run(cmd.Context())
}

// NewNewCmd creates the new command
func NewNewCmd() *cobra.Command {
	var cfg pipeline.Config
	var gpgKeyPath string

	cmd := &cobra.Command{
		Use:   "new [SPEC...]",
		Short: "Resolve an input document into a pinned manifest",
		Long: `Resolves package specs against the configured repositories and writes
a manifest pinning every resolved package to an exact NEVRA and checksum.
Specs given on the command line bypass the input file's package list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Subcommand = pipeline.CmdNew
			cfg.Specs = args
			return runPipeline(cmd, cfg, gpgKeyPath)
		},
	}

	cmd.Flags().StringVarP(&cfg.InputPath, "input", "i", "", "Input document path (default "+pipeline.DefaultInputFilename+")")
	cmd.Flags().StringVarP(&cfg.ManifestPath, "manifest", "m", "", "Manifest output path (default "+pipeline.DefaultManifestFilename+")")
	cmd.Flags().BoolVar(&cfg.UseSystemRepos, "use-system", false, "Use the host's configured repositories")
	cmd.Flags().StringSliceVar(&cfg.Archs, "archs", nil, "Target architectures (default: host architecture)")
	cmd.Flags().BoolVar(&cfg.IncludeSource, "source", false, "Include source packages in the manifest")
	cmd.Flags().BoolVar(&cfg.PerArch, "per-arch", false, "Write one manifest file per architecture")
	cmd.Flags().StringVar(&gpgKeyPath, "gpgkey", "", "Public keyring for repomd signature verification")

	return cmd
}

// NewDownloadCmd creates the download command
func NewDownloadCmd() *cobra.Command {
	var cfg pipeline.Config
	var gpgKeyPath string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every package pinned by a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Subcommand = pipeline.CmdDownload
			return runPipeline(cmd, cfg, gpgKeyPath)
		},
	}

	cmd.Flags().StringVarP(&cfg.ManifestPath, "manifest", "m", "", "Manifest path (default "+pipeline.DefaultManifestFilename+")")
	cmd.Flags().StringVar(&cfg.DestDir, "destdir", "", "Download directory (default "+pipeline.DefaultDownloadDir+")")
	cmd.Flags().StringSliceVar(&cfg.Archs, "archs", nil, "Architectures to download (default: manifest scope)")
	cmd.Flags().StringVar(&gpgKeyPath, "gpgkey", "", "Public keyring for repomd signature verification")

	return cmd
}

// NewInstallCmd creates the install command
func NewInstallCmd() *cobra.Command {
	var cfg pipeline.Config

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install every package pinned by a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Subcommand = pipeline.CmdInstall
			return runPipeline(cmd, cfg, "")
		},
	}

	cmd.Flags().StringVarP(&cfg.ManifestPath, "manifest", "m", "", "Manifest path (default "+pipeline.DefaultManifestFilename+")")
	cmd.Flags().StringSliceVar(&cfg.Archs, "archs", nil, "Architecture to install (default: host architecture)")

	return cmd
}
