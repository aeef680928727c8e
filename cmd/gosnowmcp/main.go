package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gosnowmcp — Snowflake read-only MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gosnowmcp serve     Start the MCP server (stdio by default)")
	fmt.Println("  gosnowmcp --help    Show this help message")
	fmt.Println()
	fmt.Println("Connection credentials come from SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER,")
	fmt.Println("and SNOWFLAKE_PASSWORD (a .env file is honored). Server settings,")
	fmt.Println("masking rules, and error prompts come from an optional JSON config")
	fmt.Println("file at GOSNOWMCP_CONFIG_PATH (default .gosnowmcp/config.json).")
}
