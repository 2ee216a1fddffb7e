// Package catalog is the compiled-in table of known 1-bit models, together
// with the quantization kernels each CPU architecture supports.
// This is the runtime's "model phonebook" — it maps HuggingFace ids like
// "microsoft/BitNet-b1.58-2B-4T" to local names and valid quant types.
package catalog

import "runtime"

// Entry describes a downloadable model.
type Entry struct {
	ModelID     string // HuggingFace id (e.g. "microsoft/BitNet-b1.58-2B-4T")
	ModelName   string // Local directory name and registry key
	Description string // What the model is
}

// DefaultModelID is used when the caller names no model.
const DefaultModelID = "microsoft/BitNet-b1.58-2B-4T"

// Catalog is the built-in list of downloadable models. All are ternary
// (1.58-bit) models runnable on CPU through the bitnet.cpp kernels.
var Catalog = []Entry{
	{
		ModelID:     "microsoft/BitNet-b1.58-2B-4T",
		ModelName:   "BitNet-b1.58-2B-4T",
		Description: "Official BitNet 2B parameter model (4T tokens)",
	},
	{
		ModelID:     "1bitLLM/bitnet_b1_58-large",
		ModelName:   "bitnet_b1_58-large",
		Description: "BitNet b1.58 large model",
	},
	{
		ModelID:     "1bitLLM/bitnet_b1_58-3B",
		ModelName:   "bitnet_b1_58-3B",
		Description: "BitNet b1.58 3B model",
	},
	{
		ModelID:     "HF1BitLLM/Llama3-8B-1.58-100B-tokens",
		ModelName:   "Llama3-8B-1.58-100B-tokens",
		Description: "Llama3 8B model quantized to 1.58 bits (100B tokens)",
	},
	{
		ModelID:     "tiiuae/Falcon3-1B-Instruct-1.58bit",
		ModelName:   "Falcon3-1B-Instruct-1.58bit",
		Description: "Falcon3 1B Instruct model quantized to 1.58 bits",
	},
	{
		ModelID:     "tiiuae/Falcon3-3B-Instruct-1.58bit",
		ModelName:   "Falcon3-3B-Instruct-1.58bit",
		Description: "Falcon3 3B Instruct model quantized to 1.58 bits",
	},
	{
		ModelID:     "tiiuae/Falcon3-7B-Instruct-1.58bit",
		ModelName:   "Falcon3-7B-Instruct-1.58bit",
		Description: "Falcon3 7B Instruct model quantized to 1.58 bits",
	},
	{
		ModelID:     "tiiuae/Falcon3-10B-Instruct-1.58bit",
		ModelName:   "Falcon3-10B-Instruct-1.58bit",
		Description: "Falcon3 10B Instruct model quantized to 1.58 bits",
	},
}

// quantTypes maps a normalized architecture to its supported quantization
// kernels, default first.
var quantTypes = map[string][]string{
	"arm64":  {"i2_s", "tl1"},
	"x86_64": {"i2_s", "tl2"},
}

// archAlias normalizes the names platforms report for the same ISA.
// Covers uname/platform spellings plus Go's GOARCH names.
var archAlias = map[string]string{
	"AMD64":   "x86_64",
	"amd64":   "x86_64",
	"x86":     "x86_64",
	"x86_64":  "x86_64",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"ARM64":   "arm64",
}

// Lookup finds a catalog entry by model id.
// Returns nil if not found.
func Lookup(modelID string) *Entry {
	for i := range Catalog {
		if Catalog[i].ModelID == modelID {
			return &Catalog[i]
		}
	}
	return nil
}

// LookupByName finds a catalog entry by its local model name.
// Returns nil if not found.
func LookupByName(modelName string) *Entry {
	for i := range Catalog {
		if Catalog[i].ModelName == modelName {
			return &Catalog[i]
		}
	}
	return nil
}

// ResolveArch normalizes a raw architecture name. Unrecognized names pass
// through unchanged: new platforms degrade to "unsupported quant type"
// downstream rather than failing resolution here.
func ResolveArch(raw string) string {
	if norm, ok := archAlias[raw]; ok {
		return norm
	}
	return raw
}

// LocalArch returns the normalized architecture of the running process.
func LocalArch() string {
	return ResolveArch(runtime.GOARCH)
}

// QuantTypes returns the quantization kernels supported on arch, default
// first. Nil for architectures without bitnet kernels.
func QuantTypes(arch string) []string {
	return quantTypes[ResolveArch(arch)]
}

// DefaultQuant returns the default quantization kernel for arch, or ""
// when the architecture is unsupported.
func DefaultQuant(arch string) string {
	types := QuantTypes(arch)
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

// SupportsQuant reports whether quant is a valid kernel on arch.
func SupportsQuant(arch, quant string) bool {
	for _, q := range QuantTypes(arch) {
		if q == quant {
			return true
		}
	}
	return false
}
