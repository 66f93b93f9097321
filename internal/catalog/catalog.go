//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package catalog names the layers, tables and physical layout hints of the
// medallion pipeline. It has no engine dependency; the store package turns
// these references into SQL.
package catalog

import (
	"fmt"
	"strings"
)

// Layer is a logical namespace of the catalog.
type Layer string

// Pipeline layers. Meta holds bookkeeping tables such as the run log.
const (
	Bronze Layer = "bronze"
	Silver Layer = "silver"
	Gold   Layer = "gold"
	Meta   Layer = "medallion"
)

// Layers lists the data layers in pipeline order.
var Layers = []Layer{Bronze, Silver, Gold}

// ParseLayer converts a layer name into a Layer.
func ParseLayer(s string) (Layer, error) {
	switch l := Layer(strings.ToLower(strings.TrimSpace(s))); l {
	case Bronze, Silver, Gold, Meta:
		return l, nil
	default:
		return "", fmt.Errorf("unknown layer: %s", s)
	}
}

// Table returns a reference to a table in this layer.
func (l Layer) Table(name string) TableRef {
	return TableRef{Layer: l, Name: name}
}

// Kind distinguishes materialized tables from views.
type Kind string

const (
	KindTable Kind = "table"
	KindView  Kind = "view"
)

// TableRef names a relation in the catalog.
type TableRef struct {
	Layer Layer
	Name  string
}

// String returns the unquoted dotted name, e.g. silver.customer_silver.
func (r TableRef) String() string {
	return string(r.Layer) + "." + r.Name
}

// Ident returns the quoted, fully-qualified identifier for use in SQL.
func (r TableRef) Ident() string {
	return QuoteIdent(string(r.Layer)) + "." + QuoteIdent(r.Name)
}

// WithSuffix returns a sibling reference in the same layer.
func (r TableRef) WithSuffix(suffix string) TableRef {
	return TableRef{Layer: r.Layer, Name: r.Name + suffix}
}

// QuoteIdent quotes an SQL identifier, doubling embedded quotes.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Well-known relations.
var (
	CustomerBronze     = Bronze.Table("customer_bronze")
	TransactionsBronze = Bronze.Table("transactions_bronze")

	CustomerSilver     = Silver.Table("customer_silver")
	TransactionsSilver = Silver.Table("transactions_silver")

	FactTransactions         = Gold.Table("fact_transactions")
	CustomerTransactionsView = Gold.Table("customer_transactions_vw")

	PipelineRuns = Meta.Table("pipeline_runs")
)

// Dataset identifies one of the two raw inputs flowing through the layers.
type Dataset string

const (
	Customers    Dataset = "customers"
	Transactions Dataset = "transactions"
)

// Datasets lists the raw inputs in the order stages process them.
var Datasets = []Dataset{Customers, Transactions}

// BronzeTable returns the bronze table for the dataset.
func (d Dataset) BronzeTable() TableRef {
	if d == Customers {
		return CustomerBronze
	}
	return TransactionsBronze
}

// SilverTable returns the silver table for the dataset.
func (d Dataset) SilverTable() TableRef {
	if d == Customers {
		return CustomerSilver
	}
	return TransactionsSilver
}
