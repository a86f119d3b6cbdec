//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/bitonic.wgsl
var bitonicShaderWGSL string

// WorkgroupSize matches @workgroup_size in shaders/bitonic.wgsl.
const WorkgroupSize = 256

// maxWorkgroups is the per-dimension dispatch limit from the WebGPU defaults.
const maxWorkgroups = 65535

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile shader: %w", err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("gpu: compile shader: SPIR-V output has %d bytes", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("gpu: compile shader: bad SPIR-V magic 0x%08X", words[0])
	}
	return words, nil
}

// BitonicShader returns the WGSL source of the compare-exchange kernel.
func BitonicShader() string {
	return bitonicShaderWGSL
}
