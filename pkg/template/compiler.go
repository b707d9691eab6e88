// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beanbaginc/cloudformer/pkg/filepos"
	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

// formatVersion is the provisioning format revision every compiled
// document declares.
const formatVersion = "2010-09-09"

// templateSections are the standard document sections, in output order.
var templateSections = []string{
	"Parameters",
	"Mappings",
	"Conditions",
	"Resources",
	"Outputs",
}

// StackParamLookup describes a parameter whose value comes from another
// stack's output, extracted from a parameter's LookupFromStack entry for
// the stack-creation tooling to resolve against live stacks.
type StackParamLookup struct {
	StackName      string
	OutputName     string
	MatchStackTags []string
}

// AMIOutput records the output keys synthesized for one instance resource
// carrying AMI-build metadata, so the image-build tooling can read the
// generated identifiers back out of a provisioned stack.
type AMIOutput struct {
	ResourceName   string
	InstanceIDKey  string
	NameFormatKey  string
	PreviousAMIKey string
}

// Compiler compiles a template into a provisioning-ready document.
//
// The compiled document is accessible through Doc. Alongside it, the
// compiler tracks the stack metadata external tooling needs: parameter
// lookups against other stacks, which parameters are required, and the
// synthesized AMI-build outputs.
type Compiler struct {
	Doc  *orderedmap.Map
	Meta *orderedmap.Map

	ForAMIs bool

	AMIOutputs        []AMIOutput
	StackParamLookups map[string]StackParamLookup
	RequiredParams    map[string]bool

	// Files the template pulled in while compiling, as written in the
	// template. Relative names are relative to the template's directory.
	ImportedFiles []string
	EmbeddedFiles []string
}

func NewCompiler(forAMIs bool) *Compiler {
	return &Compiler{
		ForAMIs:           forAMIs,
		StackParamLookups: map[string]StackParamLookup{},
		RequiredParams:    map[string]bool{},
	}
}

// LoadString compiles a template from a string.
func (c *Compiler) LoadString(s string) error {
	reader := c.newReader()
	err := reader.LoadString(s)
	if err != nil {
		return err
	}
	return c.build(reader, "")
}

// LoadFile compiles a template from disk. The filename's stem, with "_"
// and "." turned into "-", becomes the stack's generic name unless the
// template's Meta section sets one.
func (c *Compiler) LoadFile(filename string) error {
	reader := c.newReader()
	err := reader.LoadFile(filename)
	if err != nil {
		return err
	}
	return c.build(reader, genericStackName(filename))
}

// ToJSON serializes the compiled document as indented JSON, with mapping
// keys in template order.
func (c *Compiler) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c.Doc, "", "    ")
}

// Tags returns the tags to apply to a provisioned stack: the stack's
// generic name, its version when present, and everything under Meta Tags.
// Tag values referencing a stack parameter resolve through params; any
// value that does not end up a string is invalid.
func (c *Compiler) Tags(params map[string]string) (map[string]string, error) {
	tags := map[string]string{}

	if name, found := c.Meta.Get("Name"); found {
		tags["GenericStackName"] = stringify(name)
	}
	if version, found := c.Meta.Get("Version"); found {
		tags["StackVersion"] = stringify(version)
	}

	metaTagsValue, found := c.Meta.Get("Tags")
	if !found {
		return tags, nil
	}
	metaTags, ok := metaTagsValue.(*orderedmap.Map)
	if !ok {
		return tags, nil
	}

	err := metaTags.IterateErr(func(key, value interface{}) error {
		name := stringify(key)

		if m, ok := value.(*orderedmap.Map); ok {
			if refValue, refFound := m.Get("Ref"); refFound {
				refName, ok := refValue.(string)
				if !ok {
					return NewInvalidTagError(name, refValue)
				}
				paramValue, paramFound := params[refName]
				if !paramFound {
					return NewInvalidTagError(name, refName)
				}
				value = paramValue
			}
		}

		str, ok := value.(string)
		if !ok {
			return NewInvalidTagError(name, value)
		}
		tags[name] = str
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Compiler) newReader() *Reader {
	reader := NewReader()
	if c.ForAMIs {
		reader.State.Variables.Set("buildingAMIs", "true")
	} else {
		reader.State.Variables.Set("buildingAMIs", "false")
	}
	return reader
}

func (c *Compiler) build(reader *Reader, stackName string) error {
	doc := orderedmap.NewMap()
	doc.Set("AWSTemplateFormatVersion", formatVersion)

	meta := orderedmap.NewMap()
	if metaValue, found := reader.Doc.Get("Meta"); found {
		if m, ok := metaValue.(*orderedmap.Map); ok {
			meta = m
		}
	}
	if _, found := meta.Get("Name"); !found {
		meta.Set("Name", stackName)
	}
	c.Meta = meta

	if description, found := meta.Get("Description"); found {
		if version, vfound := meta.Get("Version"); vfound {
			if str, ok := description.(string); ok {
				description = fmt.Sprintf("%s [v%v]", str, version)
			}
		}
		doc.Set("Description", description)
	}

	for _, section := range templateSections {
		value, found := reader.Doc.Get(section)
		if !found {
			value = orderedmap.NewMap()
		}
		doc.Set(section, value)
	}

	// Inline conditionals hoist into named conditions. The provisioning
	// format declares conditions once, by name, and references them from
	// inside Resources.
	state := reader.State
	for _, section := range []string{"Conditions", "Resources"} {
		value, _ := doc.Get(section)
		resolved, err := state.resolveTree(value, resolveOpts{resolveConds: true})
		if err != nil {
			return err
		}
		doc.Set(section, resolved)
	}

	if state.ifConditions.Len() > 0 {
		value, _ := doc.Get("Conditions")
		conditions, ok := value.(*orderedmap.Map)
		if !ok {
			return NewStructureError(
				`The "Conditions" section must be a mapping`,
				filepos.NewUnknownPosition())
		}
		state.ifConditions.Iterate(func(name, expr interface{}) {
			conditions.Set(name, expr)
		})
	}

	c.Doc = doc
	c.ImportedFiles = state.ImportedFiles
	c.EmbeddedFiles = state.EmbeddedFiles

	c.postProcessParams()
	c.scanAMIMetadata()

	for _, section := range templateSections {
		value, _ := doc.Get(section)
		if isEmptySection(value) {
			doc.Delete(section)
		}
	}
	return nil
}

// postProcessParams strips the stack-creation directives out of each
// parameter so the provisioning service never sees them: LookupFromStack
// entries move to StackParamLookups, and the Required flag (default true)
// moves to RequiredParams.
func (c *Compiler) postProcessParams() {
	value, _ := c.Doc.Get("Parameters")
	params, ok := value.(*orderedmap.Map)
	if !ok {
		return
	}

	params.Iterate(func(nameValue, paramValue interface{}) {
		name, ok := nameValue.(string)
		if !ok {
			return
		}
		param, ok := paramValue.(*orderedmap.Map)
		if !ok {
			return
		}

		if lookupValue, found := param.Get("LookupFromStack"); found {
			param.Delete("LookupFromStack")
			if lookup, ok := lookupValue.(*orderedmap.Map); ok {
				c.StackParamLookups[name] = newStackParamLookup(lookup)
			}
		}

		required := true
		if requiredValue, found := param.Get("Required"); found {
			param.Delete("Required")
			if str, ok := requiredValue.(string); ok {
				required = strings.EqualFold(str, "true")
			}
		}
		c.RequiredParams[name] = required
	})
}

// scanAMIMetadata finds instance resources asking for AMI builds and, when
// compiling for AMIs, synthesizes the outputs the image-build tooling
// reads back after provisioning.
func (c *Compiler) scanAMIMetadata() {
	value, _ := c.Doc.Get("Resources")
	resources, ok := value.(*orderedmap.Map)
	if !ok {
		return
	}

	type amiInfo struct {
		resourceName string
		nameFormat   interface{}
		previousAMI  interface{}
		hasPrevious  bool
	}
	var amis []amiInfo

	resources.Iterate(func(nameValue, resourceValue interface{}) {
		resourceName, ok := nameValue.(string)
		if !ok {
			return
		}
		resource, ok := resourceValue.(*orderedmap.Map)
		if !ok {
			return
		}
		if typeValue, _ := resource.Get("Type"); typeValue != "AWS::EC2::Instance" {
			return
		}
		metadataValue, _ := resource.Get("Metadata")
		metadata, ok := metadataValue.(*orderedmap.Map)
		if !ok {
			return
		}
		cfValue, found := metadata.Get("CloudFormer")
		if !found {
			return
		}
		cf, ok := cfValue.(*orderedmap.Map)
		if !ok {
			return
		}
		nameFormat, found := cf.Get("AMINameFormat")
		if !found {
			return
		}

		info := amiInfo{
			resourceName: resourceName,
			nameFormat:   nameFormat,
		}
		info.previousAMI, info.hasPrevious = cf.Get("PreviousAMI")
		amis = append(amis, info)
	})

	if len(amis) == 0 || !c.ForAMIs {
		return
	}

	outputsValue, _ := c.Doc.Get("Outputs")
	outputs, ok := outputsValue.(*orderedmap.Map)
	if !ok {
		return
	}

	for _, info := range amis {
		instanceIDKey := fmt.Sprintf("CloudFormer%sInstanceID", info.resourceName)
		nameFormatKey := fmt.Sprintf("CloudFormer%sAMINameFormat", info.resourceName)
		previousAMIKey := fmt.Sprintf("CloudFormer%sPreviousAMI", info.resourceName)

		output := orderedmap.NewMap()
		output.Set("Description", fmt.Sprintf("Instance ID for %s", info.resourceName))
		ref := orderedmap.NewMap()
		ref.Set("Ref", info.resourceName)
		output.Set("Value", ref)
		outputs.Set(instanceIDKey, output)

		output = orderedmap.NewMap()
		output.Set("Description",
			fmt.Sprintf("Name format for the AMI for %s", info.resourceName))
		output.Set("Value", info.nameFormat)
		outputs.Set(nameFormatKey, output)

		if info.hasPrevious {
			output = orderedmap.NewMap()
			output.Set("Description",
				fmt.Sprintf("Previous AMI ID created for %s", info.resourceName))
			output.Set("Value", info.previousAMI)
			outputs.Set(previousAMIKey, output)
		}

		c.AMIOutputs = append(c.AMIOutputs, AMIOutput{
			ResourceName:   info.resourceName,
			InstanceIDKey:  instanceIDKey,
			NameFormatKey:  nameFormatKey,
			PreviousAMIKey: previousAMIKey,
		})
	}
}

func newStackParamLookup(m *orderedmap.Map) StackParamLookup {
	lookup := StackParamLookup{}
	if value, found := m.Get("StackName"); found {
		if str, ok := value.(string); ok {
			lookup.StackName = str
		}
	}
	if value, found := m.Get("OutputName"); found {
		if str, ok := value.(string); ok {
			lookup.OutputName = str
		}
	}
	if value, found := m.Get("MatchStackTags"); found {
		if items, ok := value.([]interface{}); ok {
			for _, item := range items {
				if str, ok := item.(string); ok {
					lookup.MatchStackTags = append(lookup.MatchStackTags, str)
				}
			}
		}
	}
	return lookup
}

func genericStackName(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "_", "-")
	return strings.ReplaceAll(name, ".", "-")
}

func isEmptySection(value interface{}) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case *orderedmap.Map:
		return typed.Len() == 0
	case string:
		return typed == ""
	case []interface{}:
		return len(typed) == 0
	}
	return false
}

func stringify(value interface{}) string {
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", value)
}
