package httpservice

import (
	"fmt"
	"net"
)

type Config struct {
	Port          uint32
	AdminUser     string
	AdminPassword string
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()

	if len(c.AdminUser) <= 0 || len(c.AdminPassword) <= 0 {
		return fmt.Errorf("missing admin credentials")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}
