// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/VA7DBI/storefrontAPI/client"
	"github.com/VA7DBI/storefrontAPI/storefront"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear the stored token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an authenticated request and print the response",
	Long: `Sends METHOD PATH relative to the API base URL with the stored token.
Any status the API answers with is printed; only transport failures and an
expired session are errors.`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Args:  cobra.NoArgs,
	RunE:  runProducts,
}

var orderCmd = &cobra.Command{
	Use:   "order ID",
	Short: "Show an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrder,
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the local cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add PRODUCT_ID [QUANTITY]",
	Short: "Add a product to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCartAdd,
}

var cartSetCmd = &cobra.Command{
	Use:   "set PRODUCT_ID QUANTITY",
	Short: "Change the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartSet,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove PRODUCT_ID",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartClear,
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for the cart contents",
	Args:  cobra.NoArgs,
	RunE:  runCheckout,
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("STOREFRONT_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required (--password or STOREFRONT_PASSWORD)")
	}

	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	credentials := map[string]string{"email": email, "password": password}
	if err := c.Login(commandContext(cmd), credentials); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in as", email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	if err := c.Logout(commandContext(cmd)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	req := &client.Request{Method: strings.ToUpper(args[0]), Path: args[1]}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return errors.New("--data must be valid JSON")
		}
		req.Body = []byte(data)
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}

	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	resp, err := c.Do(commandContext(cmd), req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	return printBody(out, resp.Body)
}

func runProducts(cmd *cobra.Command, args []string) error {
	var q storefront.ProductQuery
	q.Search, _ = cmd.Flags().GetString("search")
	q.Category, _ = cmd.Flags().GetString("category")
	q.Page, _ = cmd.Flags().GetInt("page")
	q.Limit, _ = cmd.Flags().GetInt("limit")

	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	products, page, err := storefront.NewService(c).ListProducts(commandContext(cmd), q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f/%s\t%d\n", p.ID, p.Name, p.Category, p.Price, p.Unit, p.Stock)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if page != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d products)\n", page.Page, page.TotalPages, page.Total)
	}
	return nil
}

func runOrder(cmd *cobra.Command, args []string) error {
	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	ctx := commandContext(cmd)
	svc := storefront.NewService(c)

	var order *storefront.Order
	if cancel, _ := cmd.Flags().GetBool("cancel"); cancel {
		order, err = svc.CancelOrder(ctx, args[0])
	} else {
		order, err = svc.GetOrder(ctx, args[0])
	}
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), order); err != nil {
		return err
	}

	if track, _ := cmd.Flags().GetBool("track"); track {
		tracking, err := svc.TrackOrder(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), tracking)
	}
	return nil
}

func runCartShow(cmd *cobra.Command, args []string) error {
	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), cart)
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		qty = n
	}

	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}

	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	product, err := storefront.NewService(c).GetProduct(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if err := cart.Add(*product, qty); err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), cart)
}

func runCartSet(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}
	if err := cart.SetQuantity(args[0], qty); err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), cart)
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}
	if err := cart.Remove(args[0]); err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), cart)
}

func runCartClear(cmd *cobra.Command, args []string) error {
	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}
	return cart.Clear()
}

func runCheckout(cmd *cobra.Command, args []string) error {
	cart, err := storefront.LoadCart(cfg.Cart.Path)
	if err != nil {
		return err
	}

	form := &storefront.CheckoutForm{Items: cart.OrderItems()}
	form.Name, _ = cmd.Flags().GetString("name")
	form.Phone, _ = cmd.Flags().GetString("phone")
	form.Email, _ = cmd.Flags().GetString("email")
	form.Address, _ = cmd.Flags().GetString("address")
	form.City, _ = cmd.Flags().GetString("city")
	form.PostalCode, _ = cmd.Flags().GetString("postal-code")
	form.PaymentMethod, _ = cmd.Flags().GetString("payment")
	form.Note, _ = cmd.Flags().GetString("note")

	c, finish, err := newSession()
	if err != nil {
		return err
	}
	defer finish()

	order, err := storefront.NewService(c).PlaceOrder(commandContext(cmd), form)
	if err != nil {
		return err
	}
	if err := cart.Clear(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), order)
}

func printCart(out io.Writer, cart *storefront.Cart) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tSUBTOTAL")
	for _, line := range cart.Items() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", line.Product.ID, line.Product.Name, line.Quantity, line.Product.Price*float64(line.Quantity))
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%.2f\n", cart.Total())
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printBody pretty-prints JSON bodies and writes anything else verbatim.
func printBody(out io.Writer, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, err := out.Write(body)
		return err
	}
	return printJSON(out, v)
}
