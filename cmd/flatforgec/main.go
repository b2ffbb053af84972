// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/flatforge/flatforge"
	"github.com/flatforge/flatforge/internal/idl"
)

var version = "dev"

func prettyPrint(buf []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, buf, "", "\t"); err != nil {
		return string(buf)
	}
	return out.String()
}

func runCompile(cmd *cobra.Command, args []string) error {
	pkg, _ := cmd.Flags().GetString("package")
	out, _ := cmd.Flags().GetString("out")

	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	schema, err := idl.Parse(string(src))
	if err != nil {
		return err
	}
	generated, err := idl.Generate(pkg, schema)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println(string(generated))
		return nil
	}
	return os.WriteFile(out, generated, 0o644)
}

func runVerify(cmd *cobra.Command, args []string) error {
	fid, _ := cmd.Flags().GetString("fid")
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	// Without a compiled TableDescriptor this only checks the header and
	// root vtable's own internal consistency, not individual fields.
	if err := flatforge.Verify(data, fid, nil); err != nil {
		return err
	}
	log.Printf("%s: structurally valid buffer", args[0])
	return nil
}

func runDumpJSON(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	out, err := flatforge.Print(data, nil)
	if err != nil {
		return err
	}
	fmt.Println(prettyPrint(out))
	return nil
}

func main() {
	root := &cobra.Command{
		Use:     "flatforgec",
		Short:   "Schema compiler and buffer inspector for the flatforge wire format",
		Version: version,
	}

	compile := &cobra.Command{
		Use:   "compile <schema.fbs>",
		Short: "Compile an IDL schema into Go TableDescriptor declarations",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	compile.Flags().String("package", "schema", "Go package name for the generated file")
	compile.Flags().String("out", "", "output file path (stdout if empty)")

	verify := &cobra.Command{
		Use:   "verify <buffer.bin>",
		Short: "Run the bounds-and-alignment verifier over a buffer",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	verify.Flags().String("fid", "", "expected 4-byte file identifier")

	dumpJSON := &cobra.Command{
		Use:   "dump-json <buffer.bin>",
		Short: "Render a buffer as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runDumpJSON,
	}

	root.AddCommand(compile, verify, dumpJSON)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
