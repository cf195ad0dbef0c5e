package models

import "time"

// Canonical JSON keys of an address document. Anything outside this set
// (plus "cep" and "_meta") is dropped on upsert.
var AddressFields = []string{
	"logradouro",
	"bairro",
	"cidade",
	"estado",
	"complemento",
}

type AddressMeta struct {
	VerifiedAt time.Time `json:"v_date"`
	NotFound   bool      `json:"__notfound__,omitempty"`
}

// Address is the canonical CEP record. Empty string means "the provider
// did not send this field"; Complement is omitted entirely when absent.
type Address struct {
	CEP        string       `json:"cep" xml:"cep"`
	Street     string       `json:"logradouro" xml:"logradouro"`
	District   string       `json:"bairro" xml:"bairro"`
	City       string       `json:"cidade" xml:"cidade"`
	State      string       `json:"estado" xml:"estado"`
	Complement string       `json:"complemento,omitempty" xml:"complemento,omitempty"`
	Meta       *AddressMeta `json:"_meta,omitempty" xml:"-"`
}

// NotFound reports whether the record is a confirmed-miss marker.
func (a *Address) NotFound() bool {
	return a.Meta != nil && a.Meta.NotFound
}

type StateInfo struct {
	Sigla      string  `json:"-" xml:"-"`
	Nome       string  `json:"nome" xml:"nome"`
	CodigoIBGE string  `json:"codigo_ibge,omitempty" xml:"codigo_ibge,omitempty"`
	AreaKM2    float64 `json:"area_km2,omitempty" xml:"area_km2,omitempty"`
}

type CityInfo struct {
	SiglaUF    string  `json:"-" xml:"-"`
	Nome       string  `json:"-" xml:"-"`
	CodigoIBGE string  `json:"codigo_ibge,omitempty" xml:"codigo_ibge,omitempty"`
	AreaKM2    float64 `json:"area_km2,omitempty" xml:"area_km2,omitempty"`
}
