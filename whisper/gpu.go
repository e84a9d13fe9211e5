package whisper

import (
	"os"
	"runtime"
	"sync"
)

// Backend identifies the acceleration backend the inference library is
// expected to use. The choice is advisory; the library initializes GPU
// support internally.
type Backend string

const (
	BackendCUDA   Backend = "cuda"
	BackendVulkan Backend = "vulkan"
	BackendMetal  Backend = "metal"
	BackendOpenCL Backend = "opencl"
	BackendCPU    Backend = "cpu"
)

var (
	detectOnce    sync.Once
	detectedValue Backend
)

// DetectBackend probes for acceleration backends by checking for known
// library files only. Subprocess probes (nvidia-smi, vulkaninfo) are
// deliberately not used; they have been observed to hang.
// Priority: CUDA > Vulkan > Metal > OpenCL > CPU.
func DetectBackend() Backend {
	detectOnce.Do(func() {
		detectedValue = probeBackend()
	})
	return detectedValue
}

func probeBackend() Backend {
	if forced := os.Getenv("WHISPER_USE_GPU"); forced == "false" || forced == "0" {
		return BackendCPU
	}

	if anyExists(cudaPaths()) {
		return BackendCUDA
	}
	if anyExists(vulkanPaths()) {
		return BackendVulkan
	}
	if runtime.GOOS == "darwin" {
		return BackendMetal
	}
	if anyExists(openclPaths()) {
		return BackendOpenCL
	}
	return BackendCPU
}

func cudaPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\Windows\System32\nvcuda.dll`}
	}
	return []string{
		"/usr/lib/x86_64-linux-gnu/libcuda.so.1",
		"/usr/lib/x86_64-linux-gnu/libcuda.so",
		"/usr/lib64/libcuda.so.1",
		"/usr/local/cuda/lib64/libcudart.so",
	}
}

func vulkanPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\Windows\System32\vulkan-1.dll`}
	}
	return []string{
		"/usr/lib/x86_64-linux-gnu/libvulkan.so.1",
		"/usr/lib64/libvulkan.so.1",
	}
}

func openclPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\Windows\System32\OpenCL.dll`}
	}
	return []string{
		"/usr/lib/x86_64-linux-gnu/libOpenCL.so.1",
		"/usr/lib64/libOpenCL.so.1",
	}
}

func anyExists(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}
