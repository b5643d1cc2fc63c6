// Package discover finds network receipt printers over mDNS/DNS-SD. It
// exists for the -discover command line flag, which helps an installer fill
// in the printer descriptor without hunting through DHCP leases.
package discover

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// Service types receipt printers announce. _pdl-datastream is the raw 9100
// service the proxy actually dials; the other two catch devices that only
// announce LPD or IPP but still accept raw connections.
var serviceTypes = []string{"_pdl-datastream._tcp", "_printer._tcp", "_ipp._tcp"}

// Printer is one discovered device.
type Printer struct {
	Name    string
	Host    string
	Port    int
	Service string
}

type browser struct {
	mu    sync.Mutex
	seen  map[string]bool
	found []Printer
}

// add records every IPv4 address of an entry, keeping the first service
// type that announced each address. Printers typically announce on several
// service types at once.
func (b *browser) add(e *zeroconf.ServiceEntry, service string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ip := range e.AddrIPv4 {
		key := ip.String()
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		b.found = append(b.found, Printer{
			Name:    e.Instance,
			Host:    key,
			Port:    e.Port,
			Service: service,
		})
	}
}

func (b *browser) results() []Printer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Printer, len(b.found))
	copy(out, b.found)
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// Browse scans the local network for printer announcements until the
// timeout elapses and returns the deduplicated results sorted by address.
func Browse(ctx context.Context, timeout time.Duration) ([]Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := &browser{seen: make(map[string]bool)}

	var wg sync.WaitGroup
	var firstErr error
	for _, st := range serviceTypes {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		entries := make(chan *zeroconf.ServiceEntry)
		wg.Add(1)
		go func(service string) {
			defer wg.Done()
			// zeroconf closes the channel once the context is done.
			for e := range entries {
				b.add(e, service)
			}
		}(st)

		if err := resolver.Browse(ctx, st, "local.", entries); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	<-ctx.Done()
	wg.Wait()

	results := b.results()
	if len(results) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
