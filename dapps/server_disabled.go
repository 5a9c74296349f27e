//go:build nodapps

package dapps

var defaultBuilder Builder = DisabledBuilder{}
