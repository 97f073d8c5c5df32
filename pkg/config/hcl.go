// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
//
//	commonapp {
//	  username = "uga"
//	}
//	source "cap_applications" {
//	  pattern     = "ugaappl_{}.zip"
//	  date_format = "01022006"
//	  destination = "/incoming/oua/commonapp"
//	}
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "capsend.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// Blocks are optional, so they decode into pointers
	type hclConfig struct {
		CommonApp *CommonAppArgs `hcl:"commonapp,block"`
		Slate     *SlateArgs     `hcl:"slate,block"`
		WebAdmit  *WebAdmitArgs  `hcl:"webadmit,block"`
		Data      *DataArgs      `hcl:"data,block"`
		Archive   *ArchiveArgs   `hcl:"archive,block"`
		Ledger    *LedgerArgs    `hcl:"ledger,block"`
		Sources   []Source       `hcl:"source,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{Sources: hclCfg.Sources}
	if hclCfg.CommonApp != nil {
		cfg.CommonApp = *hclCfg.CommonApp
	}
	if hclCfg.Slate != nil {
		cfg.Slate = *hclCfg.Slate
	}
	if hclCfg.WebAdmit != nil {
		cfg.WebAdmit = *hclCfg.WebAdmit
	}
	if hclCfg.Data != nil {
		cfg.Data = *hclCfg.Data
	}
	if hclCfg.Archive != nil {
		cfg.Archive = *hclCfg.Archive
	}
	if hclCfg.Ledger != nil {
		cfg.Ledger = *hclCfg.Ledger
	}

	return cfg, nil
}
