// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/metric"
	"jos.dev/jos/pkg/ring0/pagetables"
	"jos.dev/jos/pkg/sentry/kernel"
	"jos.dev/jos/pkg/sentry/pgalloc"
)

// wordSize is the unit dump prints.
const wordSize = 4

// maxPages bounds the ranges showmappings and dump walk.
const maxPages = 1 << 16

var commands []Command

func init() {
	commands = []Command{
		{"help", "Display this list of commands", cmdHelp},
		{"kerninfo", "Display information about the kernel", cmdKerninfo},
		{"envs", "List environments", cmdEnvs},
		{"use", "use [envid]: select the address space of an environment, or the kernel's", cmdUse},
		{"showmappings", "showmappings lo hi: display the mappings and permission bits of the pages in [lo, hi]", cmdShowmappings},
		{"setp", "setp va [U] [W] [AVAIL]: set the permission bits of the mapping at va, clearing the rest", cmdSetp},
		{"PT", "PT va: show the page table covering va", cmdPT},
		{"dump", "dump v|p lo hi: display memory by virtual or physical address", cmdDump},
		{"pages", "Display physical memory usage", cmdPages},
		{"destroy", "destroy envid: destroy an environment", cmdDestroy},
		{"metrics", "metrics [prom]: display kernel metrics, optionally in Prometheus format", cmdMetrics},
		{"exit", "Leave the monitor", cmdExit},
	}
}

// parseAddr parses a hexadecimal address written with a 0x prefix.
func parseAddr(s string) (uint32, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("address typing error: %q", s)
	}
	v, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("address typing error: %q", s)
	}
	return uint32(v), nil
}

func parseRange(lo, hi string) (uint32, uint32, error) {
	begin, err := parseAddr(lo)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseAddr(hi)
	if err != nil {
		return 0, 0, err
	}
	if end < begin {
		return 0, 0, fmt.Errorf("empty range [0x%08x, 0x%08x]", begin, end)
	}
	return begin, end, nil
}

func parseEnvID(s string) (kernel.EnvID, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad environment id %q", s)
	}
	return kernel.EnvID(v), nil
}

func cmdHelp(m *Monitor, args []string) error {
	for _, c := range m.commands {
		m.printf("%s - %s\n", c.Name, c.Desc)
	}
	return nil
}

func cmdKerninfo(m *Monitor, args []string) error {
	mf := m.k.MemoryFile()
	table := m.k.SyscallTable()
	m.printf("Environments: %d slots, %d in use\n", m.k.NumEnvs(), len(m.k.Envs()))
	m.printf("Physical memory: %d pages, %d free\n", mf.TotalFrames(), mf.FreeFrames())
	m.printf("Syscall table: %s\n", table.Name)
	m.printf("Memory layout:\n")
	for _, l := range []struct {
		name string
		va   uint32
	}{
		{"KERNBASE", jos.KERNBASE},
		{"ULIM", jos.ULIM},
		{"UENVS", jos.UENVS},
		{"UTOP", jos.UTOP},
		{"USTACKTOP", jos.USTACKTOP},
		{"UTEXT", jos.UTEXT},
	} {
		m.printf("  %-9s %08x\n", l.name, l.va)
	}
	return nil
}

func cmdEnvs(m *Monitor, args []string) error {
	w := tabwriter.NewWriter(m.out, 0, 8, 1, ' ', 0)
	fmt.Fprintln(w, "ID\tPARENT\tSTATUS\tPRIO\tRUNS\tRECV\tNAME\t")
	for _, s := range m.k.Summaries() {
		cur := ""
		if s.Current {
			cur = "*"
		}
		recv := "-"
		if s.Recving != 0 {
			recv = fmt.Sprintf("%08x", s.DstVA)
		}
		fmt.Fprintf(w, "%v%s\t%v\t%v\t%d\t%d\t%s\t%s\t\n", s.ID, cur, s.ParentID, s.Status, s.Priority, s.Runs, recv, s.Name)
	}
	return w.Flush()
}

func cmdUse(m *Monitor, args []string) error {
	if len(args) == 1 {
		m.space = 0
		m.printf("using the kernel address space\n")
		return nil
	}
	id, err := parseEnvID(args[1])
	if err != nil {
		return err
	}
	if _, err := m.k.Lookup(id); err != nil {
		return fmt.Errorf("environment %v: %w", id, err)
	}
	m.space = id
	m.printf("using the address space of %v\n", id)
	return nil
}

func permBits(f jos.PTEFlags) string {
	b := func(bit jos.PTEFlags) int {
		if f.Has(bit) {
			return 1
		}
		return 0
	}
	return fmt.Sprintf("PTE_U : %d PTE_W : %d PTE_P : %d", b(jos.PTE_U), b(jos.PTE_W), b(jos.PTE_P))
}

func cmdShowmappings(m *Monitor, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: showmappings lo hi")
	}
	begin, end, err := parseRange(args[1], args[2])
	if err != nil {
		return err
	}
	begin &^= hostarch.PageSize - 1
	if (end-begin)/hostarch.PageSize >= maxPages {
		return fmt.Errorf("range covers more than %d pages", maxPages)
	}
	return m.k.Inspect(m.space, func(pt *pagetables.PageTables, _ *pgalloc.MemoryFile) error {
		for va := uint64(begin); va <= uint64(end); va += hostarch.PageSize {
			pte, ok := pt.Lookup(hostarch.Addr(va))
			if !ok {
				m.printf("VA 0x%08x : page not mapping\n", va)
				continue
			}
			m.printf("VA 0x%08x : mapping 0x%08x %s\n", va, pte.Address(), permBits(pte.Flags()))
		}
		return nil
	})
}

func cmdSetp(m *Monitor, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: setp va [U] [W] [AVAIL]")
	}
	va, err := parseAddr(args[1])
	if err != nil {
		return err
	}
	perm := jos.PTE_P
	for _, a := range args[2:] {
		f, err := jos.ParsePTEFlag(a)
		if err != nil {
			return err
		}
		perm |= f
	}
	if m.space != 0 && va >= jos.UTOP {
		return fmt.Errorf("0x%08x is shared with the kernel, use the kernel address space", va)
	}
	return m.k.Inspect(m.space, func(pt *pagetables.PageTables, _ *pgalloc.MemoryFile) error {
		addr := hostarch.Addr(va)
		before, ok := pt.Lookup(addr)
		if !ok {
			return fmt.Errorf("0x%08x is not mapped", va)
		}
		pt.SetPerm(addr, perm)
		after, _ := pt.Lookup(addr)
		m.printf("before change %s\n", permBits(before.Flags()))
		m.printf("after change %s\n", permBits(after.Flags()))
		return nil
	})
}

func cmdPT(m *Monitor, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: PT va")
	}
	va, err := parseAddr(args[1])
	if err != nil {
		return err
	}
	return m.k.Inspect(m.space, func(pt *pagetables.PageTables, _ *pgalloc.MemoryFile) error {
		pde := pt.PDE(hostarch.Addr(va))
		if !pde.Valid() {
			m.printf("PDX 0x%03x : no page table\n", jos.PDX(va))
			return nil
		}
		m.printf("PDX 0x%03x : page table 0x%08x %s\n", jos.PDX(va), pde.Address(), permBits(pde.Flags()))
		return nil
	})
}

func cmdDump(m *Monitor, args []string) error {
	if len(args) != 4 || (args[1] != "v" && args[1] != "p") {
		return fmt.Errorf("usage: dump v|p lo hi")
	}
	begin, end, err := parseRange(args[2], args[3])
	if err != nil {
		return err
	}
	begin &^= wordSize - 1
	if (end-begin)/hostarch.PageSize >= maxPages {
		return fmt.Errorf("range covers more than %d pages", maxPages)
	}
	physical := args[1] == "p"
	return m.k.Inspect(m.space, func(pt *pagetables.PageTables, mf *pgalloc.MemoryFile) error {
		for a := uint64(begin); a <= uint64(end); a += wordSize {
			var (
				frame  uint32
				prefix = "Va"
			)
			if physical {
				prefix = "pa"
				frame = uint32(a) >> hostarch.PageShift
				if frame >= mf.TotalFrames() {
					return fmt.Errorf("0x%08x is beyond physical memory", a)
				}
				if mf.IsFree(pgalloc.FrameNumber(frame)) {
					m.printf("%s 0x%08x : free\n", prefix, a)
					continue
				}
			} else {
				pte, ok := pt.Lookup(hostarch.Addr(a))
				if !ok {
					m.printf("%s 0x%08x : not mapped\n", prefix, a)
					continue
				}
				frame = pte.Frame()
			}
			data := mf.Data(pgalloc.FrameNumber(frame))
			off := uint32(a) % hostarch.PageSize
			m.printf("%s 0x%08x : 0x%08x\n", prefix, a, binary.LittleEndian.Uint32(data[off:]))
		}
		return nil
	})
}

func cmdPages(m *Monitor, args []string) error {
	mf := m.k.MemoryFile()
	total, free := mf.TotalFrames(), mf.FreeFrames()
	m.printf("%d pages, %d used, %d free\n", total, total-free, free)
	shared := 0
	for fn := pgalloc.FrameNumber(0); uint32(fn) < total; fn++ {
		if !mf.IsFree(fn) && mf.Refs(fn) > 1 {
			shared++
		}
	}
	m.printf("%d pages mapped more than once\n", shared)
	return nil
}

func cmdDestroy(m *Monitor, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: destroy envid")
	}
	id, err := parseEnvID(args[1])
	if err != nil {
		return err
	}
	if err := m.k.DestroyEnv(id); err != nil {
		return fmt.Errorf("environment %v: %w", id, err)
	}
	if m.space == id {
		m.space = 0
	}
	return nil
}

func cmdMetrics(m *Monitor, args []string) error {
	if len(args) > 1 && args[1] == "prom" {
		return metric.WritePrometheus(m.out)
	}
	w := tabwriter.NewWriter(m.out, 0, 8, 1, ' ', 0)
	for _, s := range metric.Snapshot() {
		fields := make([]string, 0, len(s.Fields))
		for k, v := range s.Fields {
			fields = append(fields, k+"="+v)
		}
		sort.Strings(fields)
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.Name, strings.Join(fields, ","), s.Value)
	}
	return w.Flush()
}

func cmdExit(m *Monitor, args []string) error {
	return errExit
}
