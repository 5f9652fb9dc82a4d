package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NickMagic25/kubeegg/internal/api"
	"github.com/NickMagic25/kubeegg/internal/egg"
	"github.com/NickMagic25/kubeegg/internal/fetch"
	"github.com/NickMagic25/kubeegg/internal/output"
	"github.com/NickMagic25/kubeegg/internal/prompt"
	"github.com/NickMagic25/kubeegg/internal/render"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "kubeegg",
		Short: "Generate Kubernetes manifests from game server eggs",
	}

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the requirements API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			return api.Start(port, nil)
		},
	}
	serveCmd.Flags().StringP("port", "p", "8080", "Port to run the server on")

	var generateCmd = &cobra.Command{
		Use:   "generate <egg>",
		Short: "Generate manifests from an egg URL or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			force, _ := cmd.Flags().GetBool("force")
			sops, _ := cmd.Flags().GetBool("sops")

			doc, err := fetch.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			parsed, err := egg.Parse(doc)
			if err != nil {
				return err
			}

			cfg, err := prompt.Collect(parsed, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			secretFilename := "secret.yaml"
			if sops {
				secretFilename = "secret.sops.yaml"
			}
			files := render.All(cfg, secretFilename)
			if err := output.Write(outDir, cfg.AppName, files, force); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %d manifests to %s\n", len(files)+1, outDir)
			if sops {
				fmt.Fprintf(cmd.OutOrStdout(),
					"Encrypt the secret before committing:\n  sops --encrypt --in-place %s\n",
					filepath.Join(outDir, secretFilename))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Apply with:\n  kubectl apply -k %s\n", outDir)
			return nil
		},
	}
	generateCmd.Flags().StringP("out", "o", ".", "Output directory for the manifests")
	generateCmd.Flags().BoolP("force", "f", false, "Overwrite existing manifest files")
	generateCmd.Flags().BoolP("sops", "s", false, "Name the secret file for sops encryption")

	rootCmd.AddCommand(serveCmd, generateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
