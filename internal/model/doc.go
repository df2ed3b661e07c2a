// Package model defines the identified process models (FOPDT, SOPDT and
// integrating) and their flat record form.
package model
