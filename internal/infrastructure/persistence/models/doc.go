// Package models contains GORM persistence models. Domain aggregates stay free
// of ORM tags and the repositories convert through ToDomain/FromDomain.
//
// Embedded documents (product variants, images and attributes, order lines,
// shipping addresses, user address books) are stored as jsonb columns holding
// the marshalled document.
package models
