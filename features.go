// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pbcodec

import "fmt"

// Values of the google.protobuf.FeatureSet enums.
const (
	featureOpen   = 1
	featureClosed = 2

	featurePacked   = 1
	featureExpanded = 2

	featureVerify = 2
	featureNone   = 3

	featureLengthPrefixed = 1
	featureDelimited      = 2

	featureJSONAllow      = 1
	featureJSONBestEffort = 2
)

// features is a resolved google.protobuf.FeatureSet.
type features struct {
	fieldPresence         int32
	enumType              int32
	repeatedFieldEncoding int32
	utf8Validation        int32
	messageEncoding       int32
	jsonFormat            int32
}

var editionDefaults = map[Edition]features{
	EditionProto2: {
		fieldPresence:         int32(PresenceExplicit),
		enumType:              featureClosed,
		repeatedFieldEncoding: featureExpanded,
		utf8Validation:        featureNone,
		messageEncoding:       featureLengthPrefixed,
		jsonFormat:            featureJSONBestEffort,
	},
	EditionProto3: {
		fieldPresence:         int32(PresenceImplicit),
		enumType:              featureOpen,
		repeatedFieldEncoding: featurePacked,
		utf8Validation:        featureVerify,
		messageEncoding:       featureLengthPrefixed,
		jsonFormat:            featureJSONAllow,
	},
	Edition2023: {
		fieldPresence:         int32(PresenceExplicit),
		enumType:              featureOpen,
		repeatedFieldEncoding: featurePacked,
		utf8Validation:        featureVerify,
		messageEncoding:       featureLengthPrefixed,
		jsonFormat:            featureJSONAllow,
	},
	Edition2024: {
		fieldPresence:         int32(PresenceExplicit),
		enumType:              featureOpen,
		repeatedFieldEncoding: featurePacked,
		utf8Validation:        featureVerify,
		messageEncoding:       featureLengthPrefixed,
		jsonFormat:            featureJSONAllow,
	},
}

// defaultsFor returns the feature defaults of an edition.
func defaultsFor(e Edition) (features, error) {
	f, ok := editionDefaults[e]
	if !ok {
		return features{}, fmt.Errorf("edition %v: %w", e, ErrUnsupportedEdition)
	}
	return f, nil
}

// merge overrides f with the features set in options, which is a
// google.protobuf.*Options message or nil.
func (f features) merge(options *Message) features {
	set := options.msg("features")
	if set == nil {
		return f
	}
	override := func(dst *int32, name string) {
		if v, ok := set.i32(name); ok && v != 0 {
			*dst = v
		}
	}
	override(&f.fieldPresence, "fieldPresence")
	override(&f.enumType, "enumType")
	override(&f.repeatedFieldEncoding, "repeatedFieldEncoding")
	override(&f.utf8Validation, "utf8Validation")
	override(&f.messageEncoding, "messageEncoding")
	override(&f.jsonFormat, "jsonFormat")
	return f
}
