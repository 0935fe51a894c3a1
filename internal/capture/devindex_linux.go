package capture

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

func deviceIndex(name string) (int, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return 0, fmt.Errorf("interface %q not found: %w", name, err)
	}
	return link.Attrs().Index, nil
}
