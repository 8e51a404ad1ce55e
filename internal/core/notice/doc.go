// Package notice turns one TED notice XML document into a flat staging
// record.
//
// Documents are decoded into a namespace-free tree (Parse), fields are
// read through ordered path candidates (First), and the derived values
// (deadline instant, native id, tb_id, detail URL) are computed by small
// pure functions. Nothing in this package performs I/O.
package notice
