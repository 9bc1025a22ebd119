package main

// zhtpnode is the mesh dispatcher's process entrypoint: load configuration,
// configure logging, and serve QUIC connections until interrupted. CLI
// surface intentionally stays thin — configuration and operational control
// are the extent of it.

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zhtp-core/internal/zhtp"
	"zhtp-core/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "zhtpnode"}
	rootCmd.AddCommand(serveCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [env]",
		Short: "run the mesh transport dispatcher",
		Run: func(cmd *cobra.Command, args []string) {
			env := ""
			if len(args) > 0 {
				env = args[0]
			}
			if err := run(env); err != nil {
				logrus.WithFields(logrus.Fields{"error": err}).Fatal("zhtpnode exited")
			}
		},
	}
	return cmd
}

func run(env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	role := zhtp.RoleFull
	if cfg.Network.MaxPeers > 0 && cfg.Network.MaxPeers < 3 {
		role = zhtp.RoleEdge
	}

	// Certificate loading is deployment-specific; operators supply a real
	// cert/key pair before going to production. An empty tls.Config lets the
	// binary start for local development against the loopback listener.
	dispatcher, err := zhtp.NewDispatcher(zhtp.DispatcherConfig{
		TLSConfig: &tls.Config{},
		Role:      role,
		LocalChain: func() zhtp.ChainSummary {
			return zhtp.ChainSummary{}
		},
	})
	if err != nil {
		return fmt.Errorf("construct dispatcher: %w", err)
	}

	addr := cfg.Network.ListenAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Network.P2PPort)
	}
	logrus.WithFields(logrus.Fields{"addr": addr, "role": role}).Info("starting zhtp mesh dispatcher")
	return dispatcher.Serve(addr)
}
