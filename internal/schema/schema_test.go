package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "routemux", Short: "Route aggregation CLI"}
	price := &cobra.Command{Use: "price", Short: "Aggregate indicative prices"}
	price.Flags().String("from", "", "Source chain")
	root.AddCommand(price)

	protocols := &cobra.Command{Use: "protocols", Short: "Protocol registry commands"}
	protocols.AddCommand(&cobra.Command{Use: "list", Short: "List protocols", Aliases: []string{"ls"}})
	root.AddCommand(protocols)
	return root
}

func TestBuildWholeTree(t *testing.T) {
	s, err := Build(testRoot(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Path != "routemux" || len(s.Subcommands) != 2 {
		t.Fatalf("schema = %+v", s)
	}
}

func TestBuildSubcommandWithFlags(t *testing.T) {
	s, err := Build(testRoot(), "price")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Path != "routemux price" {
		t.Fatalf("path = %s", s.Path)
	}
	if len(s.Flags) != 1 || s.Flags[0].Name != "from" {
		t.Fatalf("flags = %+v", s.Flags)
	}
}

func TestBuildResolvesAlias(t *testing.T) {
	s, err := Build(testRoot(), "protocols ls")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Path != "routemux protocols list" {
		t.Fatalf("path = %s", s.Path)
	}
}

func TestBuildUnknownPath(t *testing.T) {
	if _, err := Build(testRoot(), "nonsense"); err == nil {
		t.Fatal("Build(nonsense) = nil error, want error")
	}
}
