// Package models contains the GORM persistence models of the bundled catalog
// schema and their admin metadata registration.
//
// Key Principles:
// 1. Rows are plain GORM structs; admin access goes through the typed field
//    accessors registered in RegisterCatalog, never through reflection
// 2. Join entities of adorned target lists embed SandboxModel and are scoped
//    per edit context
// 3. Subtypes embed their parent model and share its table
//
// Structure:
// - base.go: shared columns (Timestamps, SandboxModel)
// - catalog.go: Category, Product, BundleProduct, Media and their join rows
// - registry.go: entity type registration and admin collections
package models
