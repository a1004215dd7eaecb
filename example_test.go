package skillrpc_test

import (
	"context"
	"fmt"

	"github.com/skillwire/skillrpc"
)

// Example demonstrates creating a server with an action, a resource, and a
// prompt using the builder API.
func Example() {
	srv := skillrpc.NewServer(skillrpc.ServerInfo{
		Name:    "example-server",
		Version: "1.0.0",
	})

	// Register a typed action
	type SearchInput struct {
		Query string `json:"query"`
		Limit int    `json:"limit" jsonschema:"default=10,maximum=100"`
	}

	srv.Action("search").
		Description("Search for documents").
		Handler(func(ctx context.Context, input SearchInput) ([]string, error) {
			return []string{"result1", "result2"}, nil
		})

	// Register a resource with a URI template
	srv.Resource("res://user/{id}").
		Name("User").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (any, error) {
			return &skillrpc.ResourceContent{
				URI:      uri,
				MimeType: "application/json",
				Text:     fmt.Sprintf(`{"id": %q}`, params["id"]),
			}, nil
		})

	// Register a prompt
	srv.Prompt("greet").
		Description("Generate a greeting").
		Argument("name", "Name to greet", true).
		Handler(func(ctx context.Context, args map[string]string) (any, error) {
			return &skillrpc.PromptResult{
				Messages: []skillrpc.PromptMessage{
					{
						Role:    "user",
						Content: skillrpc.TextContent{Type: "text", Text: "Hello, " + args["name"]},
					},
				},
			}, nil
		})

	caps := srv.Capabilities()
	fmt.Println(caps.Tools, caps.Resources, caps.Prompts)
	// Output: true true true
}

// ExampleServer_Bind demonstrates registering a whole service by naming
// convention.
func ExampleServer_Bind() {
	srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "echo", Version: "1.0.0"})
	if err := srv.Bind(echoService{}); err != nil {
		fmt.Println(err)
		return
	}

	for _, a := range srv.Actions() {
		fmt.Println(a.Name)
	}
	// Output: echo
}

type echoService struct{}

func (echoService) Echo(args struct {
	Message string `json:"message"`
}) (string, error) {
	return args.Message, nil
}
