package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wb-seller-tracker/api/openapi"
	"github.com/donaldgifford/wb-seller-tracker/internal/api"
)

var openapiFormat string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document of the HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, hapi := api.NewServer(api.Deps{Version: Version})
		data, err := openapi.Render(hapi, openapiFormat)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVar(&openapiFormat, "format", "yaml", "json or yaml")
}
