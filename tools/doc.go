// Package tools defines the Tool interface served to LLM agents over MCP, covering naming, parameter schemas, and registration with a tool server. Concrete tools such as the Wikipedia suite live in subpackages.
package tools
