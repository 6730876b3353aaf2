// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/cfupload/cfupload/sdk/services/transfer"
)

// printer renders transfer results. short prints as results arrive;
// json and yaml collect them and print once in Flush.
type printer struct {
	out    io.Writer
	errOut io.Writer
	format string
	quiet  bool

	results []*transfer.TransferResult
}

func (p *printer) Result(res *transfer.TransferResult) {
	if !res.Success {
		fmt.Fprintf(p.errOut, "Error: %s\n", res.Error)
	}
	if p.format != "short" {
		p.results = append(p.results, res)
		return
	}
	if !res.Success || p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s uploaded successfully\n", res.Destination)
	if res.Public {
		fmt.Fprintf(p.out, "CDN URL: %s\n", res.PublicURL)
	}
}

func (p *printer) Flush() error {
	if p.quiet || p.format == "short" {
		return nil
	}
	results := p.results
	if results == nil {
		results = []*transfer.TransferResult{}
	}

	var (
		b   []byte
		err error
	)
	switch p.format {
	case "json":
		b, err = json.MarshalIndent(results, "", "  ")
		b = append(b, '\n')
	case "yaml":
		b, err = yaml.Marshal(results)
	default:
		return fmt.Errorf("unsupported output format %q", p.format)
	}
	if err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	_, err = p.out.Write(b)
	return err
}
