// Package commands implementa os comandos CLI do AtendeBot usando cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd cria o comando raiz do CLI com todos os subcomandos registrados.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "atendebot",
		Short: "AtendeBot - atendimento automático via WhatsApp",
		Long: `AtendeBot é o atendente automático do escritório via WhatsApp.
Conduz o cliente pelo menu de opções e passa o atendimento para um
humano quando necessário.

Examples:
  atendebot serve
  atendebot serve --config ./config.yaml`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
	)

	// Flags globais.
	rootCmd.PersistentFlags().StringP("config", "c", "", "caminho para o arquivo de configuração")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "habilita logs detalhados")

	return rootCmd
}
