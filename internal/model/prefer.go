package model

import (
	"strings"

	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
)

// Preferences are the container representation preferences of a request.
type Preferences struct {
	MinimalContainer      bool
	ContainedIRIs         bool
	ContainedDescriptions bool
}

// IRIsOnly reports whether pages list annotation IRIs instead of
// descriptions. Descriptions are the default.
func (p Preferences) IRIsOnly() bool {
	return p.ContainedIRIs && !p.ContainedDescriptions
}

// WithIRIs returns p with the contained representation forced to IRIs or
// descriptions, as selected by the iris query parameter.
func (p Preferences) WithIRIs(iris bool) Preferences {
	p.ContainedIRIs = iris
	p.ContainedDescriptions = !iris
	return p
}

const preferDocs = "see WAP - ContainerPreferences"

// ParsePrefer parses a Prefer header of the form
//
//	return=representation;include="<iri> <iri>"
//
// An empty header yields the default preferences.
func ParsePrefer(header string) (Preferences, error) {
	var prefs Preferences
	header = strings.TrimSpace(header)
	if header == "" {
		return prefs, nil
	}
	invalid := waperr.New(waperr.InvalidRequest, "Invalid Prefer header, "+preferDocs)

	ret, include, ok := strings.Cut(header, ";")
	if !ok || strings.ReplaceAll(ret, " ", "") != "return=representation" {
		return prefs, invalid
	}
	key, value, ok := strings.Cut(strings.TrimSpace(include), "=")
	if !ok || strings.TrimSpace(key) != "include" {
		return prefs, invalid
	}
	value = strings.TrimSpace(value)
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return prefs, invalid
	}
	iris := strings.Fields(value[1 : len(value)-1])
	if len(iris) == 0 {
		return prefs, invalid
	}
	for _, iri := range iris {
		switch iri {
		case vocab.PreferMinimalContainer.Value:
			prefs.MinimalContainer = true
		case vocab.PreferContainedIRIs.Value:
			prefs.ContainedIRIs = true
		case vocab.PreferContainedDescriptions.Value:
			prefs.ContainedDescriptions = true
		default:
			return Preferences{}, invalid
		}
	}
	if prefs.ContainedIRIs && prefs.ContainedDescriptions {
		return Preferences{}, waperr.New(waperr.InvalidRequest,
			"Embedded IRIs and Embedded Descriptions cannot be used together,  "+preferDocs)
	}
	return prefs, nil
}
