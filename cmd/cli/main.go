package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    = "http://localhost:5000"
	output    = "text" // "text" or "json"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

var rootCmd = &cobra.Command{
	Use:   "socialctl",
	Short: "socialctl - manage your account from the command line",
	Long: `socialctl provides command-line access to the social API.
Check server health, inspect profiles and posts, and freeze your account.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if authToken == "" {
			authToken = os.Getenv("SOCIAL_TOKEN")
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API server is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		return get("/health")
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <username>",
	Short: "Show a user's profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get("/api/users/profile/" + args[0])
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts <username>",
	Short: "List a user's posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return get("/api/posts/user/" + args[0])
	},
}

var freezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Freeze your account until the next login",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authToken == "" {
			return fmt.Errorf("freeze requires a session token, set SOCIAL_TOKEN or --token")
		}
		return request(http.MethodPut, "/api/users/freeze")
	},
}

func get(path string) error {
	return request(http.MethodGet, path)
}

func request(method, path string) error {
	req, err := http.NewRequest(method, apiURL+path, nil)
	if err != nil {
		return err
	}
	if authToken != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: authToken})
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, body)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	formatted, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(formatted))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Session token (defaults to SOCIAL_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(freezeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
