package wasmtest

// Add exports add(a, b) = a + b. No imports, no host calls.
func Add() []byte {
	return module(
		sect(secType, vec(functype([]byte{i32, i32}, []byte{i32}))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("add", 0))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x20, 0x00, // local.get 0
			0x20, 0x01, // local.get 1
			0x6A, // i32.add
			0x0B, // end
		}))),
	)
}

// Fib exports fib(n) computed iteratively, calling __get_time once per
// iteration. The loop runs n+1 times, so fib(n) costs exactly n+1 gas.
// fib(0)=0, fib(1)=1, fib(20)=6765.
func Fib() []byte {
	return module(
		sect(secType, vec(
			functype(nil, []byte{i32}),          // type 0: () -> i32
			functype([]byte{i32}, []byte{i32}), // type 1: (i32) -> i32
		)),
		sect(secImport, vec(importFunc("env", "__get_time", 0))),
		sect(secFunc, vec(u(1))),
		sect(secExport, vec(exportFunc("fib", 1))),
		sect(secCode, vec(body(localsI32(3), []byte{
			// param 0: n; locals: 1: a, 2: b, 3: i
			0x41, 0x01, // i32.const 1
			0x21, 0x01, // local.set a      (a=1, b=0: fib(-1), fib(0))
			0x03, 0x40, // loop
			0x10, 0x00, //   call __get_time
			0x1A, //   drop
			0x20, 0x02, //   local.get b
			0x20, 0x01, //   local.get a
			0x20, 0x02, //   local.get b
			0x6A, //   i32.add
			0x21, 0x02, //   local.set b    (b = a+b)
			0x21, 0x01, //   local.set a    (a = old b)
			0x20, 0x03, //   local.get i
			0x41, 0x01, //   i32.const 1
			0x6A, //   i32.add
			0x22, 0x03, //   local.tee i
			0x20, 0x00, //   local.get n
			0x4D, //   i32.le_u
			0x0D, 0x00, //   br_if loop     (continue while i <= n)
			0x0B, // end loop
			0x20, 0x01, // local.get a      (a = fib(n) after n+1 iterations)
			0x0B, // end
		}))),
	)
}

// Loop exports loop() which calls __get_time forever. Only the deadline
// can stop it.
func Loop() []byte {
	return module(
		sect(secType, vec(
			functype(nil, []byte{i32}), // type 0: () -> i32
			functype(nil, nil),         // type 1: () -> ()
		)),
		sect(secImport, vec(importFunc("env", "__get_time", 0))),
		sect(secFunc, vec(u(1))),
		sect(secExport, vec(exportFunc("loop", 1))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x03, 0x40, // loop
			0x10, 0x00, //   call __get_time
			0x1A, //   drop
			0x0C, 0x00, //   br loop
			0x0B, // end loop
			0x0B, // end
		}))),
	)
}

// AllocatePages imports the sandbox memory and exports
// allocate(pages) = memory.grow(pages).
func AllocatePages() []byte {
	return module(
		sect(secType, vec(functype([]byte{i32}, []byte{i32}))),
		sect(secImport, vec(importMemory("env", "memory"))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("allocate", 0))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x20, 0x00, // local.get pages
			0x40, 0x00, // memory.grow
			0x0B, // end
		}))),
	)
}

// GetRandom exports getRandom() = __get_random().
func GetRandom() []byte {
	return module(
		sect(secType, vec(functype(nil, []byte{i32}))),
		sect(secImport, vec(importFunc("env", "__get_random", 0))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("getRandom", 1))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x10, 0x00, // call __get_random
			0x0B, // end
		}))),
	)
}

// GetTime exports getTime() = __get_time().
func GetTime() []byte {
	return module(
		sect(secType, vec(functype(nil, []byte{i32}))),
		sect(secImport, vec(importFunc("env", "__get_time", 0))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("getTime", 1))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x10, 0x00, // call __get_time
			0x0B, // end
		}))),
	)
}

// HostCall imports env.transform(i32)->i32 and exports
// callHost(x) = transform(x).
func HostCall() []byte {
	return module(
		sect(secType, vec(functype([]byte{i32}, []byte{i32}))),
		sect(secImport, vec(importFunc("env", "transform", 0))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("callHost", 1))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x20, 0x00, // local.get 0
			0x10, 0x00, // call transform
			0x0B, // end
		}))),
	)
}

// Echo imports the sandbox memory and implements the serialized-payload
// ABI: __alloc is a bump allocator from a heap base global, and
// echo(ptr, len) returns its input range packed as ptr | len<<16.
func Echo() []byte {
	return module(
		sect(secType, vec(
			functype([]byte{i32}, []byte{i32}),      // type 0: __alloc
			functype([]byte{i32, i32}, []byte{i32}), // type 1: echo
		)),
		sect(secImport, vec(importMemory("env", "memory"))),
		sect(secFunc, vec(u(0), u(1))),
		sect(secGlobal, vec(cat(
			[]byte{i32, 0x01},       // mutable i32
			[]byte{0x41, 0x80, 0x08}, // i32.const 1024
			[]byte{0x0B},
		))),
		sect(secExport, vec(
			exportFunc("__alloc", 0),
			exportFunc("echo", 1),
		)),
		sect(secCode, vec(
			body(noLocals(), []byte{
				0x23, 0x00, // global.get heap   (returned pointer)
				0x23, 0x00, // global.get heap
				0x20, 0x00, // local.get size
				0x6A, // i32.add
				0x24, 0x00, // global.set heap
				0x0B, // end
			}),
			body(noLocals(), []byte{
				0x20, 0x00, // local.get ptr
				0x20, 0x01, // local.get len
				0x41, 0x10, // i32.const 16
				0x74, // i32.shl
				0x72, // i32.or
				0x0B, // end
			}),
		)),
	)
}

// Crash exports crash() which hits unreachable immediately.
func Crash() []byte {
	return module(
		sect(secType, vec(functype(nil, nil))),
		sect(secFunc, vec(u(0))),
		sect(secExport, vec(exportFunc("crash", 0))),
		sect(secCode, vec(body(noLocals(), []byte{
			0x00, // unreachable
			0x0B, // end
		}))),
	)
}

// StartHostCall imports env.boom and declares it as the start function,
// so instantiation itself invokes the host handler.
func StartHostCall() []byte {
	return module(
		sect(secType, vec(functype(nil, nil))),
		sect(secImport, vec(importFunc("env", "boom", 0))),
		sect(secStart, u(0)),
	)
}

// WASIImport imports wasi_snapshot_preview1.fd_write, which import
// isolation must reject.
func WASIImport() []byte {
	return module(
		sect(secType, vec(functype([]byte{i32, i32, i32, i32}, []byte{i32}))),
		sect(secImport, vec(importFunc("wasi_snapshot_preview1", "fd_write", 0))),
	)
}

// ForeignNamespaceImport imports from a namespace other than env.
func ForeignNamespaceImport() []byte {
	return module(
		sect(secType, vec(functype(nil, nil))),
		sect(secImport, vec(importFunc("foo", "bar", 0))),
	)
}

// UndeclaredEnvImport imports an env name the sandbox never provides.
func UndeclaredEnvImport() []byte {
	return module(
		sect(secType, vec(functype(nil, nil))),
		sect(secImport, vec(importFunc("env", "missing_fn", 0))),
	)
}
